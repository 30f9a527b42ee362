// Command walletctl is a terminal client for the wallet API.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smmwallet/backend/internal/client"
	"github.com/smmwallet/backend/internal/database"
	"github.com/smmwallet/backend/internal/models"
	"github.com/smmwallet/backend/internal/notify"
	"github.com/smmwallet/backend/internal/pricecache"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const usage = `usage: walletctl [flags] <command> [args]

user commands:
  login <uid>                          open a session and print the token
  balance                              show the wallet balance
  history                              list wallet transactions
  order <kind> <service_ref> <qty> [link]
  orders                               list my orders
  code <order_id>                      show a delivered code
  pricing <scope>                      show effective pricing (cached)
  watch                                follow balance, orders, notices and pricing

operator commands (need --admin-secret):
  approve <order_id>
  reject <order_id> [reason]
  restock <pool> <file>                one code per line
  topup <uid> <amount> [note]

flags:
`

func main() {
	flags := pflag.NewFlagSet("walletctl", pflag.ExitOnError)
	flags.String("url", "http://localhost:8080/api/v1", "API base URL")
	flags.String("token", "", "session token (WALLETCTL_TOKEN)")
	flags.String("admin-secret", "", "operator secret (WALLETCTL_ADMIN_SECRET)")
	flags.Duration("timeout", 10*time.Second, "request timeout")
	flags.Int("retries", 3, "retries for read requests")
	flags.Bool("redis-cache", false, "share the pricing cache through Redis (REDIS_HOST, REDIS_PORT)")
	flags.Duration("cache-ttl", pricecache.DefaultTTL, "pricing cache TTL")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	flags.Parse(os.Args[1:])

	viper.SetEnvPrefix("walletctl")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	if err := viper.BindPFlags(flags); err != nil {
		log.Fatalf("bind flags: %v", err)
	}

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}

	c := client.New(client.Config{
		BaseURL:     viper.GetString("url"),
		Timeout:     viper.GetDuration("timeout"),
		RetryCount:  viper.GetInt("retries"),
		AdminSecret: viper.GetString("admin-secret"),
	})
	c.SetToken(viper.GetString("token"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, c, args[0], args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "walletctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, cmd string, args []string) error {
	switch cmd {
	case "login":
		if len(args) != 1 {
			return fmt.Errorf("login needs a uid")
		}
		session, err := c.Login(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("export WALLETCTL_TOKEN=%s\n", session.Token)
		return nil
	case "balance":
		return printResult(c.Balance(ctx))
	case "history":
		return printResult(c.Transactions(ctx, 50))
	case "order":
		if len(args) < 3 {
			return fmt.Errorf("order needs kind, service_ref and quantity")
		}
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("quantity: %w", err)
		}
		req := models.CreateOrderRequest{Kind: models.OrderKind(args[0]), ServiceRef: args[1], Quantity: qty}
		if len(args) > 3 {
			req.Link = args[3]
		}
		return printResult(c.CreateOrder(ctx, req))
	case "orders":
		return printResult(c.Orders(ctx, 50))
	case "code":
		if len(args) != 1 {
			return fmt.Errorf("code needs an order id")
		}
		delivery, err := c.Code(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(delivery.Code)
		return nil
	case "pricing":
		if len(args) != 1 {
			return fmt.Errorf("pricing needs a scope")
		}
		return printResult(newPricingCache(c).Get(ctx, pricecache.NewKey(args[0])))
	case "watch":
		return watch(ctx, c)
	case "approve":
		if len(args) != 1 {
			return fmt.Errorf("approve needs an order id")
		}
		return printResult(c.ApproveOrder(ctx, args[0]))
	case "reject":
		if len(args) < 1 {
			return fmt.Errorf("reject needs an order id")
		}
		return printResult(c.RejectOrder(ctx, args[0], strings.Join(args[1:], " ")))
	case "restock":
		if len(args) != 2 {
			return fmt.Errorf("restock needs a pool and a file")
		}
		codes, err := readLines(args[1])
		if err != nil {
			return err
		}
		return printResult(c.Restock(ctx, args[0], codes))
	case "topup":
		if len(args) < 2 {
			return fmt.Errorf("topup needs a uid and an amount")
		}
		amount, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		return printResult(c.TopUp(ctx, args[0], models.AdjustBalanceRequest{Amount: amount, Note: strings.Join(args[2:], " ")}))
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func newPricingCache(c *client.Client) *pricecache.Cache {
	ttl := viper.GetDuration("cache-ttl")
	var store pricecache.Store
	if viper.GetBool("redis-cache") {
		if rdb := database.InitRedis(); rdb != nil {
			store = pricecache.NewRedisStore(rdb, "walletctl:pricing", ttl)
		}
	}
	return pricecache.New(c, store, pricecache.WithTTL(ttl))
}

func watch(ctx context.Context, c *client.Client) error {
	feed := notify.NewSynchronizer()
	var (
		mu      sync.Mutex
		printed = map[string]bool{}
	)
	w := client.NewWatcher(c, feed, newPricingCache(c), client.DefaultIntervals(), client.OnChange(func(s client.Snapshot) {
		mu.Lock()
		defer mu.Unlock()

		for _, n := range feed.Notices(models.AudienceUser) {
			if printed[n.ID] {
				continue
			}
			printed[n.ID] = true
			fmt.Printf("[%s] %s: %s\n", n.CreatedAt.Local().Format(time.Kitchen), n.Title, n.Body)
		}
		feed.Open(models.AudienceUser)
		if s.Balance != nil {
			fmt.Printf("balance %s, %d orders\n", s.Balance.Balance.StringFixed(2), len(s.Orders))
		}
	}))
	return w.Run(ctx)
}

func printResult(v any, err error) error {
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
