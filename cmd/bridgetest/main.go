package main

//go-build: CGO_ENABLED=0

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/picobridge/pkg/link"
	"github.com/robotalks/picobridge/pkg/link/hal/periph"
)

var (
	halConf     = periph.NewConfig()
	mode        = "stress"
	targetBytes = 4 * 1024 * 1024
	cycles      = 300
)

// stressSizes are the payload sizes each stress cycle walks through.
var stressSizes = []int{10, 50, 100, 256, 500, 1000, 1500}

func init() {
	halConf.SetupFlags()
	flag.StringVar(&mode, "mode", mode, "Test mode: write-blast, read-blast or stress.")
	flag.IntVar(&targetBytes, "bytes", targetBytes, "Target bytes for blast modes.")
	flag.IntVar(&cycles, "cycles", cycles, "Cycle count for stress mode.")
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
	if asserted, err := l.WaitPending(10 * time.Second); err != nil {
		glog.Exitf("wait pending: %v", err)
	} else if !asserted {
		glog.Exit("TIMEOUT")
	}
	fmt.Println("OK")
	if _, ok, err := l.Cycle(2 * time.Second); err != nil {
		glog.Exitf("initial sync: %v", err)
	} else if !ok {
		glog.Exit("initial sync: no response")
	}
	fmt.Printf("Initial credit=%d units\n\n", l.Credit())

	switch mode {
	case "write-blast":
		err = writeBlast(l)
	case "read-blast":
		err = readBlast(l)
	case "stress":
		err = stress(l)
	default:
		glog.Exitf("unknown mode %q", mode)
	}
	if err != nil {
		glog.Exitln(err)
	}
}

// sendRefreshing sends a payload, refreshing credit as needed. It
// retries the send after every successful refresh, since blast traffic
// legitimately exhausts the peer buffer over and over.
func sendRefreshing(l *link.Link, payload []byte, refreshes *int) error {
	for {
		err := l.Send(payload)
		if !errors.Is(err, link.ErrNoCredit) {
			return err
		}
		if _, ok, err := l.Cycle(2 * time.Second); err != nil {
			return err
		} else if !ok {
			return link.ErrNoResponse
		}
		*refreshes++
	}
}

func writeBlast(l *link.Link) error {
	targetMsgs := targetBytes / link.MaxPayload
	fmt.Printf("Write blast: %d-byte payloads, %d messages\n", link.MaxPayload, targetMsgs)

	var txBytes, refreshes int
	t0 := time.Now()
	for seq := uint32(0); int(seq) < targetMsgs; seq++ {
		payload := makeSendPayload(seq, link.MaxPayload)
		if err := sendRefreshing(l, payload, &refreshes); err != nil {
			return fmt.Errorf("seq=%d: %w", seq, err)
		}
		txBytes += len(payload)
	}
	elapsed := time.Since(t0)

	report(map[string]string{
		"Messages":   fmt.Sprint(targetMsgs),
		"TX bytes":   fmt.Sprint(txBytes),
		"Refreshes":  fmt.Sprint(refreshes),
		"Time":       elapsed.Round(100 * time.Millisecond).String(),
		"Throughput": throughput(txBytes, elapsed),
	})
	return nil
}

func readBlast(l *link.Link) error {
	targetMsgs := targetBytes / link.MaxPayload
	fmt.Printf("Read blast: %d-byte payloads, %d messages\n", link.MaxPayload, targetMsgs)

	var rxBytes, rxErrors, emptyReads int
	t0 := time.Now()
	for seq := uint32(0); int(seq) < targetMsgs; {
		payload, ok, err := l.Cycle(2 * time.Second)
		if err != nil {
			return fmt.Errorf("seq=%d: %w", seq, err)
		}
		if !ok {
			return fmt.Errorf("seq=%d: %w", seq, link.ErrNoResponse)
		}
		if len(payload) == 0 {
			// peer had nothing staged yet
			emptyReads++
			continue
		}
		rxBytes += len(payload)
		if len(payload) != link.MaxPayload {
			glog.Errorf("seq=%d: unexpected length %d", seq, len(payload))
			rxErrors++
		} else if err := verifyFetchPayload(seq, payload); err != nil {
			glog.Errorf("seq=%d: %v", seq, err)
			rxErrors++
		}
		seq++
	}
	elapsed := time.Since(t0)

	report(map[string]string{
		"RX bytes":    fmt.Sprint(rxBytes),
		"RX errors":   fmt.Sprint(rxErrors),
		"Empty reads": fmt.Sprint(emptyReads),
		"Time":        elapsed.Round(100 * time.Millisecond).String(),
		"Throughput":  throughput(rxBytes, elapsed),
	})
	return nil
}

func stress(l *link.Link) error {
	fmt.Printf("Stress: %d cycles over sizes %v\n", cycles, stressSizes)

	var txBytes, rxBytes, rxErrors, refreshes int
	t0 := time.Now()
	seq := uint32(0)
	for cycle := 0; cycle < cycles; cycle++ {
		for _, size := range stressSizes {
			if err := sendRefreshing(l, makeSendPayload(seq, size), &refreshes); err != nil {
				return fmt.Errorf("seq=%d size=%d: %w", seq, size, err)
			}
			txBytes += size

			payload, ok, err := l.Cycle(2 * time.Second)
			if err != nil {
				return fmt.Errorf("seq=%d size=%d: %w", seq, size, err)
			}
			if !ok {
				glog.Errorf("seq=%d size=%d: timeout", seq, size)
				rxErrors++
				seq++
				continue
			}
			rxBytes += len(payload)
			if err := verifyFetchPayload(seq, payload); err != nil {
				glog.Errorf("seq=%d size=%d: %v", seq, size, err)
				rxErrors++
			}
			seq++
		}
	}
	elapsed := time.Since(t0)

	report(map[string]string{
		"Messages":  fmt.Sprint(seq),
		"TX bytes":  fmt.Sprint(txBytes),
		"RX bytes":  fmt.Sprint(rxBytes),
		"RX errors": fmt.Sprint(rxErrors),
		"Refreshes": fmt.Sprint(refreshes),
		"Time":      elapsed.Round(100 * time.Millisecond).String(),
	})
	return nil
}

func throughput(n int, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f KB/s", float64(n)/elapsed.Seconds()/1e3)
}

func report(stats map[string]string) {
	fmt.Println()
	fmt.Println("  Results")
	for _, key := range []string{"Messages", "TX bytes", "RX bytes", "RX errors", "Empty reads", "Refreshes", "Time", "Throughput"} {
		if val, ok := stats[key]; ok {
			fmt.Printf("  %-12s %s\n", key+":", val)
		}
	}
}
