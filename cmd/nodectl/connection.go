package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/srand/jolt/node/pkg/client"
	"github.com/srand/jolt/node/pkg/codec"
	jlog "github.com/srand/jolt/node/pkg/log"
)

func NewNodeClient(ctx context.Context) *client.Client {
	serializer, err := codec.Lookup(configData.Serializer)
	if err != nil {
		log.Fatal(err)
	}

	c, err := client.Dial(ctx, configData.NodeUri, client.Options{
		Codec:  serializer,
		Logger: jlog.Discard(),
	})
	if err != nil {
		log.Fatal(err)
	}

	return c
}

func DefaultDeadlineContext() (context.Context, func()) {
	return context.WithTimeout(context.Background(), configData.Timeout)
}

// ParseValue interprets a command line argument as JSON, falling back
// to a plain string.
func ParseValue(arg string) any {
	var value any
	if err := json.Unmarshal([]byte(arg), &value); err != nil {
		return arg
	}
	return value
}

func PrintJSON(value any) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	log.SetFlags(0)
	log.Println(string(data))
}
