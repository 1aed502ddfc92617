package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/spf13/pflag"

	"github.com/Siasom1/esg-ledger/core/types"
	"github.com/Siasom1/esg-ledger/events"
	"github.com/Siasom1/esg-ledger/rpc"
)

const (
	success = 0
	failure = 1
)

const usage = `usage: esgledger [flags] <command> [arguments]

commands:
  list                                        list all ledgers
  create   <id>                               create a ledger
  append   <id> <title> <description> <tx>    mine a course into a ledger
  chain    <id>                               print all blocks of a ledger
  validate <id>                               check the hash chain of a ledger
  audit    <id>                               list every invalid block of a ledger
  scores   <id>                               compute the ESG scores of a ledger
  entries  <tx>                               find the blocks recording a transaction
  watch                                       stream sealed blocks (websocket URL)

flags:
`

func main() {
	os.Exit(run())
}

func run() int {

	var (
		flagRPC     string
		flagTimeout time.Duration
	)

	pflag.StringVarP(&flagRPC, "rpc", "r", "http://127.0.0.1:8545", "URL of the ledger node JSON-RPC server")
	pflag.DurationVarP(&flagTimeout, "timeout", "t", 5*time.Minute, "timeout for a single request")
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}

	pflag.Parse()

	args := pflag.Args()
	if len(args) == 0 {
		pflag.Usage()
		return failure
	}

	ctx, cancel := context.WithTimeout(context.Background(), flagTimeout)
	defer cancel()

	command, args := args[0], args[1:]
	if command == "watch" {
		return watch(flagRPC)
	}

	client, err := gethrpc.DialContext(ctx, flagRPC)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not dial node: %v\n", err)
		return failure
	}
	defer client.Close()

	method, params, err := request(command, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		pflag.Usage()
		return failure
	}

	var result json.RawMessage
	err = client.CallContext(ctx, &result, rpc.Namespace+"_"+method, params...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", command, err)
		return failure
	}

	return printResult(result)
}

func request(command string, args []string) (string, []interface{}, error) {
	want := map[string]int{
		"list":     0,
		"create":   1,
		"append":   4,
		"chain":    1,
		"validate": 1,
		"audit":    1,
		"scores":   1,
		"entries":  1,
	}

	n, ok := want[command]
	if !ok {
		return "", nil, fmt.Errorf("unknown command %q", command)
	}
	if len(args) != n {
		return "", nil, fmt.Errorf("%s takes %d arguments, got %d", command, n, len(args))
	}

	switch command {
	case "list":
		return command, nil, nil
	case "append":
		course := types.Course{
			Title:           args[1],
			Description:     args[2],
			TransactionHash: args[3],
		}
		return command, []interface{}{args[0], course}, nil
	default:
		return command, []interface{}{args[0]}, nil
	}
}

func watch(url string) int {
	if !strings.HasPrefix(url, "ws") {
		url = "ws" + strings.TrimPrefix(url, "http")
		url = strings.TrimSuffix(url, "/") + "/ws"
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not dial node: %v\n", err)
		return failure
	}
	defer client.Close()

	sealed := make(chan events.Sealed, 16)
	sub, err := client.Subscribe(ctx, rpc.Namespace, sealed, "sealed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not subscribe: %v\n", err)
		return failure
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-sig:
			return success
		case err := <-sub.Err():
			fmt.Fprintf(os.Stderr, "subscription failed: %v\n", err)
			return failure
		case event := <-sealed:
			data, err := json.Marshal(event)
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not encode event: %v\n", err)
				return failure
			}
			fmt.Println(string(data))
		}
	}
}

func printResult(result json.RawMessage) int {
	var out interface{}
	err := json.Unmarshal(result, &out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid response: %v\n", err)
		return failure
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not format response: %v\n", err)
		return failure
	}
	fmt.Println(string(data))

	return success
}
