package main

import (
	"fmt"
	"io"
	"net"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pior/tcpclient"
)

var (
	rootCmd = &cobra.Command{
		Use:   "tcpcli",
		Short: "Send raw payloads over cached TCP connections",
	}

	sendHost string
	sendPort int
	verbose  bool

	// sendCmd represents one request/response round trip
	sendCmd = &cobra.Command{
		Use:   "send [payload]",
		Short: "Send a payload to an endpoint and print the response",
		Long:  "Send dials (or reuses) a connection to the endpoint, writes the payload and reads one response, where the response ends at the first short read.",
		Args:  cobra.ExactArgs(1),
		RunE:  runSend,
	}

	echoAddr string

	// echoCmd runs a local echo server, handy for exercising send
	echoCmd = &cobra.Command{
		Use:   "echo",
		Short: "Run a loopback echo server for testing",
		Args:  cobra.NoArgs,
		RunE:  runEcho,
	}
)

func init() {
	sendCmd.Flags().StringVar(&sendHost, "host", "127.0.0.1", "Target host")
	sendCmd.Flags().IntVar(&sendPort, "port", 9000, "Target port")
	sendCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log client activity")
	echoCmd.Flags().StringVar(&echoAddr, "addr", "127.0.0.1:9000", "Listen address")
	rootCmd.AddCommand(sendCmd, echoCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	logger := zap.NewNop()
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = l
	}

	registry := tcpclient.New(&tcpclient.Config{Logger: logger})
	defer registry.Close()

	conn, err := registry.GetOrCreate(sendHost, sendPort)
	if err != nil {
		return err
	}
	reply, err := conn.SendAndReceiveStringSync(args[0])
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

func runEcho(cmd *cobra.Command, args []string) error {
	ln, err := net.Listen("tcp", echoAddr)
	if err != nil {
		return err
	}
	defer ln.Close()
	fmt.Printf("echo server listening on %s\n", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go func() {
			defer conn.Close()
			_, _ = io.Copy(conn, conn)
		}()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
