package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"BinkAgent-Bridge/sdk/go/binkclient"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "binkd base url")
	action := flag.String("action", "GET_WALLET_INFO", "action to invoke")
	text := flag.String("text", "show my wallet addresses", "instruction text")
	flag.Parse()

	client, err := binkclient.NewClient(*addr, nil)
	if err != nil {
		log.Fatal(err)
	}
	client.SetAPIToken(os.Getenv("BINKD_API_TOKEN"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	actions, err := client.ListActions(ctx)
	if err != nil {
		log.Fatal(err)
	}
	for _, a := range actions {
		fmt.Printf("%s: %v\n", a.Name, a.Capabilities)
	}

	result, err := client.Invoke(ctx, *action, *text)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("ok=%v\n%s\n", result.OK, result.Text)
}
