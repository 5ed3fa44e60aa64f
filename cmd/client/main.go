package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/linechat/linechat/pkg/client"
	"github.com/linechat/linechat/pkg/logging"
	"github.com/linechat/linechat/pkg/version"
)

func main() {
	fs := flag.NewFlagSet("linechat", flag.ExitOnError)
	addr := fs.StringP("addr", "a", "localhost:4000", "Server address")
	name := fs.StringP("name", "n", "", "Log in with this username on connect")
	logLevel := fs.String("log-level", "warn", "Log level: "+logging.LevelNames())
	showVersion := fs.BoolP("version", "V", false, "Print version and exit")
	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println("linechat", version.String())
		return
	}

	if err := logging.Setup(logging.Options{Level: *logLevel}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	c, err := client.Dial(*addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *name != "" {
		if err := c.Send("LOGIN " + *name); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	if err := c.Run(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
