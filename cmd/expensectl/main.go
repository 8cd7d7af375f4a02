// Command expensectl lists, adds and summarizes expenses through the HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"expensetracker/internal/cli"
	"expensetracker/internal/client"
	"expensetracker/internal/core"
)

const defaultBaseURL = "http://localhost:8081"

const usage = `usage: expensectl [-api URL] <command> [flags]

commands:
  list      print every expense
  add       record an expense (-date, -product, -price, -payee)
  summary   print totals and who is owed
`

func main() {
	_ = cli.LoadEnvFile()

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("expensectl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }

	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	api := global.String("api", baseURL, "API base URL")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	c := client.New(*api)
	cmd, rest := global.Arg(0), global.Args()[1:]

	var err error
	switch cmd {
	case "list":
		err = list(ctx, c, stdout)
	case "add":
		err = add(ctx, c, rest, stdout, stderr)
	case "summary":
		err = summary(ctx, c, stdout)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		global.Usage()
		return 2
	}
	return report(err, stderr)
}

func list(ctx context.Context, c *client.Client, out io.Writer) error {
	expenses, err := c.FetchExpenses(ctx)
	if err != nil {
		return err
	}
	return renderExpenses(out, expenses)
}

func add(ctx context.Context, c *client.Client, args []string, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(errOut)
	in := core.ExpenseInput{}
	fs.StringVar(&in.Date, "date", time.Now().Format(core.DateLayout), "purchase date (YYYY-MM-DD)")
	fs.StringVar(&in.Product, "product", "", "product purchased")
	fs.StringVar(&in.Price, "price", "", "price, at most two decimals")
	fs.StringVar(&in.Payee, "payee", "", "who paid")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	e, err := in.Parse(nil)
	if err != nil {
		return err
	}
	rec, err := c.CreateExpense(ctx, e)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Added expense %s: %s %s paid by %s on %s\n", rec.ID, rec.Product, rec.Price, rec.Payee, rec.Date)
	return nil
}

func summary(ctx context.Context, c *client.Client, out io.Writer) error {
	s, err := c.FetchSummary(ctx)
	if err != nil {
		return err
	}
	return renderSummary(out, s)
}

var errUsage = errors.New("usage")

// report prints err and maps it to an exit code.
func report(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, errUsage) {
		return 2
	}
	if verr, ok := core.AsValidationError(err); ok {
		fields := make([]string, 0, len(verr.Fields))
		for f := range verr.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			for _, msg := range verr.Fields[f] {
				fmt.Fprintf(stderr, "%s: %s\n", f, msg)
			}
		}
		return 1
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return 1
}
