package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/celerix-dev/celerix-records/pkg/sdk"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	client := sdk.New()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	command := strings.ToUpper(os.Args[1])
	args := os.Args[2:]

	switch command {
	case "CREATE":
		if len(args) < 2 {
			log.Fatal("Usage: celerix-records CREATE <prefix> <json>")
		}
		item, err := client.Resource(args[0]).Create(ctx, parseBody(args[1]))
		if err != nil {
			log.Fatal(err)
		}
		printJSON(item)

	case "LIST":
		if len(args) < 1 {
			log.Fatal("Usage: celerix-records LIST <prefix>")
		}
		items, err := client.Resource(args[0]).List(ctx)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(items)

	case "GET":
		if len(args) < 2 {
			log.Fatal("Usage: celerix-records GET <prefix> <id>")
		}
		item, err := client.Resource(args[0]).Get(ctx, parseID(args[1]))
		if err != nil {
			log.Fatal(err)
		}
		printJSON(item)

	case "UPDATE":
		if len(args) < 3 {
			log.Fatal("Usage: celerix-records UPDATE <prefix> <id> <json>")
		}
		item, err := client.Resource(args[0]).Update(ctx, parseID(args[1]), parseBody(args[2]))
		if err != nil {
			log.Fatal(err)
		}
		printJSON(item)

	case "DEL", "DELETE":
		if len(args) < 2 {
			log.Fatal("Usage: celerix-records DEL <prefix> <id>")
		}
		if err := client.Resource(args[0]).Delete(ctx, parseID(args[1])); err != nil {
			log.Fatal(err)
		}
		fmt.Println("OK")

	case "PING":
		if err := client.Ping(ctx); err != nil {
			log.Fatal(err)
		}
		fmt.Println("PONG")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func parseBody(raw string) map[string]any {
	var body map[string]any
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		log.Fatalf("Body must be a JSON object: %v", err)
	}
	return body
}

func parseID(raw string) int64 {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Fatalf("Invalid id %q", raw)
	}
	return id
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func printUsage() {
	fmt.Println("Celerix Records CLI - Interface for celerix-recordsd")
	fmt.Println("\nUsage:")
	fmt.Println("  celerix-records CREATE <prefix> <json>")
	fmt.Println("  celerix-records LIST <prefix>")
	fmt.Println("  celerix-records GET <prefix> <id>")
	fmt.Println("  celerix-records UPDATE <prefix> <id> <json>")
	fmt.Println("  celerix-records DEL <prefix> <id>")
	fmt.Println("  celerix-records PING")
	fmt.Println("\nEnvironment Variables:")
	fmt.Println("  CELERIX_RECORDS_ADDR  Address of the daemon (default: localhost:8000)")
}
