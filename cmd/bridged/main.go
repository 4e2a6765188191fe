package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/picobridge/pkg/bridge/mqtt"
	"github.com/robotalks/picobridge/pkg/framework"
	"github.com/robotalks/picobridge/pkg/link"
	"github.com/robotalks/picobridge/pkg/link/hal/periph"
)

var (
	halConf = periph.NewConfig()
	mqttURL = "mqtt://localhost:1883/bridge/"
)

func init() {
	if val := os.Getenv("BRIDGE_MQTT_URL"); val != "" {
		mqttURL = val
	}
	halConf.SetupFlags()
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()

	bus, pending, ready, err := halConf.Open()
	if err != nil {
		glog.Exitf("open link: %v", err)
	}
	l := link.Open(bus, pending, ready)
	defer l.Close()

	if _, ok, err := l.Cycle(2 * time.Second); err != nil {
		glog.Exitf("initial sync: %v", err)
	} else if !ok {
		glog.Exit("initial sync: no response")
	}
	glog.Infof("peer synced, credit=%d units", l.Credit())

	b, err := mqtt.NewBridge(mqttURL, l)
	if err != nil {
		glog.Exitf("mqtt %q: %v", mqttURL, err)
	}

	runner := framework.NewRunner().HandleSignals()
	runner.Go(link.NewPoller(l, b), b)
	if err := runner.Wait(); err != nil {
		glog.Exitln(err)
	}
}
