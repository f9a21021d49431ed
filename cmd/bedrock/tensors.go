package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/bedrock/internal/gguf"
)

func tensorsCmd() *cli.Command {
	var (
		limit  int64
		filter string
	)

	flags := append(modelFlag(),
		&cli.Int64Flag{Name: "limit", Usage: "limit listing (0 = no limit)", Destination: &limit},
		&cli.StringFlag{Name: "filter", Usage: "substring filter for tensor names", Destination: &filter},
	)

	return &cli.Command{
		Name:  "tensors",
		Usage: "List the tensor index of a .gguf file",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx

			f, err := gguf.Open(modelPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open gguf: %v", err), 1)
			}
			defer func() { _ = f.Close() }()

			printTensorIndex(f, filter, int(limit))
			return nil
		},
	}
}
