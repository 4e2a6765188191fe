package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/picobridge/pkg/frame"
	"github.com/robotalks/picobridge/pkg/framework"
	"github.com/robotalks/picobridge/pkg/link"
	"github.com/robotalks/picobridge/pkg/link/hal/periph"
)

var (
	halConf     = periph.NewConfig()
	sendTimeout = 2 * time.Second
)

func init() {
	halConf.SetupFlags()
	flag.DurationVar(&sendTimeout, "send-timeout", sendTimeout, "Credit refresh timeout for sends.")
}

func main() {
	flag.Parse()

	bus, pending, ready, err := halConf.Open()
	if err != nil {
		glog.Exitf("open link: %v", err)
	}
	l := link.Open(bus, pending, ready)
	defer l.Close()

	fmt.Print("Waiting for peer... ")
	asserted, err := l.WaitPending(10 * time.Second)
	if err != nil {
		glog.Exitf("wait pending: %v", err)
	}
	if !asserted {
		glog.Exit("TIMEOUT")
	}
	fmt.Println("OK")

	// initial sync seeds the credit estimate
	if _, ok, err := l.Cycle(2 * time.Second); err != nil {
		glog.Exitf("initial sync: %v", err)
	} else if !ok {
		glog.Exit("initial sync: no response")
	}
	fmt.Printf("Connected (credit=%d units)\n", l.Credit())

	shell := ishell.New()
	shell.SetPrompt("> ")
	shell.Println("Format: send <channel>: <hex> <hex> ...")

	ctx, cancel := context.WithCancel(context.Background())
	runner := framework.NewRunnerWith(ctx).HandleSignals()
	runner.Go(link.NewPoller(l, link.HandleMessageFunc(
		func(ctx context.Context, msg frame.Message) {
			shell.Printf("RX  %s\n", frame.Format(msg))
		})))

	shell.AddCmd(&ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "<channel>: <hex> <hex> ...",
		Func: func(c *ishell.Context) {
			msg, err := frame.Parse(strings.Join(c.Args, " "))
			if err != nil {
				c.Err(err)
				return
			}
			if err := l.SendMessage(msg, sendTimeout); err != nil {
				c.Err(fmt.Errorf("send failed (credit=%d): %w", l.Credit(), err))
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "credit",
		Help: "show the current credit estimate",
		Func: func(c *ishell.Context) {
			c.Printf("%d units (%d bytes)\n", l.Credit(), l.Credit()*link.CreditUnit)
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "sync",
		Help: "run one handshake cycle to refresh credit",
		Func: func(c *ishell.Context) {
			if _, ok, err := l.Cycle(sendTimeout); err != nil {
				c.Err(err)
			} else if !ok {
				c.Err(link.ErrNoResponse)
			} else {
				c.Printf("credit=%d units\n", l.Credit())
			}
		},
	})

	if args := flag.Args(); len(args) > 0 {
		if err := shell.Process(args...); err != nil {
			glog.Exitln(err)
		}
	} else {
		shell.Run()
	}
	cancel()
	if err := runner.Wait(); err != nil {
		glog.Exitln(err)
	}
}
