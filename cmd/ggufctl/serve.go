package main

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/ggufkit/ggufkit/httpapi"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve <file>",
		Short: "serve a read-only inspection API for a model over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newRunLogger("serve")
			c, _, err := loadContent(args[0])
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			log.Info("serving", "addr", ln.Addr().String())
			fmt.Printf("listening on %s\n", ln.Addr().String())
			return httpapi.New(c).Serve(ln)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:11433", "address to listen on")
	return cmd
}
