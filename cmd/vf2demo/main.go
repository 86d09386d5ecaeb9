// Command vf2demo drives the L2 multi-queue transport from a terminal:
// a self-contained "demo" run against an in-process loopback peer, and a
// "connect" mode that dials a real FPGA-side peer and exposes an
// interactive enqueue/pop/show REPL.
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/ardnew/vf2/config"
	"github.com/ardnew/vf2/internal/obs"
	"github.com/ardnew/vf2/internal/prof"
	"github.com/ardnew/vf2/l1"
	"github.com/ardnew/vf2/l2"
	"github.com/ardnew/vf2/peer"
)

func main() {
	app := &cli.App{
		Name:  "vf2demo",
		Usage: "exercise the virtual-FPGA L2 transport",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "queue-set declaration YAML file"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug-level logging"},
			&cli.StringFlag{Name: "profile", Usage: "write a CPU profile to this path for the duration of the command (requires building with -tags profile)"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				obs.SetLogLevel(zerolog.DebugLevel)
			}
			if path := c.String("profile"); path != "" {
				if err := prof.StartCPU(path); err != nil {
					return err
				}
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if c.String("profile") != "" {
				prof.StopCPU()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "demo",
				Usage:  "run a scripted round trip against an in-process loopback peer",
				Action: runDemo,
			},
			{
				Name:   "connect",
				Usage:  "dial a real FPGA-side peer and open an interactive REPL",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "host", Value: l1.DefaultHost},
					&cli.IntFlag{Name: "port", Value: l1.DefaultPort},
				},
				Action: runConnect,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		color.Red("vf2demo: %v", err)
		os.Exit(1)
	}
}

func loadDeclaration(c *cli.Context) (config.Declaration, error) {
	path := c.String("config")
	if path == "" {
		return defaultDeclaration(), nil
	}
	return config.Load(path)
}

// defaultDeclaration is used when no --config is given: one 4-byte data
// queue and one zero-width signalling queue in each direction.
func defaultDeclaration() config.Declaration {
	return config.Declaration{
		H2F: []config.QueueSpec{
			{WidthBytes: 4, CapacityTX: 8, CapacityRX: 8},
			{WidthBytes: 0, CapacityTX: 4, CapacityRX: 4},
		},
		F2H: []config.QueueSpec{
			{WidthBytes: 4, CapacityTX: 8, CapacityRX: 8},
			{WidthBytes: 0, CapacityTX: 4, CapacityRX: 4},
		},
	}
}

func runDemo(c *cli.Context) error {
	decl, err := loadDeclaration(c)
	if err != nil {
		return err
	}
	h2f, f2h := decl.Specs()

	hostT, peerT := l1.NewLoopbackPair()

	peerH2F := make([]peer.QueueSpec, len(h2f))
	for i, s := range h2f {
		peerH2F[i] = peer.QueueSpec{WidthBytes: s.WidthBytes, Capacity: s.CapacityTX}
	}
	peerF2H := make([]peer.QueueSpec, len(f2h))
	for i, s := range f2h {
		peerF2H[i] = peer.QueueSpec{WidthBytes: s.WidthBytes, Capacity: s.CapacityRX}
	}
	echo := make(peer.EchoMap, len(peerH2F))
	for i := range peerH2F {
		if i < len(peerF2H) {
			echo[uint8(i)] = uint8(i)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := peer.New(peerT, peerH2F, peerF2H, echo)
	go func() { _ = loop.Run(ctx) }()

	engine := l2.NewEngine(h2f, f2h)
	if err := engine.StartWithTransport(ctx, hostT); err != nil {
		return err
	}
	defer engine.Finish()

	color.Cyan("vf2demo ▶ enqueuing a sample item on every non-zero-width H2F queue")
	for qid, s := range h2f {
		if s.WidthBytes == 0 {
			continue
		}
		item := make([]byte, s.WidthBytes)
		for i := range item {
			item[i] = byte(qid*16 + i)
		}
		for {
			if err := engine.Enqueue(uint8(qid), item); err == nil {
				break
			} else if err != l2.ErrFull {
				return err
			}
		}
		fmt.Printf("  H2F[%d] <- %s\n", qid, hex.EncodeToString(item))
	}

	color.Cyan("vf2demo ▶ draining whatever the loopback peer echoes back")
	for qid, s := range f2h {
		if s.WidthBytes == 0 {
			continue
		}
		out := make([]byte, s.WidthBytes)
		for attempt := 0; attempt < 200 && engine.Pop(uint8(qid), out) != nil; attempt++ {
		}
		fmt.Printf("  F2H[%d] -> %s\n", qid, hex.EncodeToString(out))
	}

	color.Cyan("vf2demo ▶ final queue state")
	return engine.ShowAllQueues(os.Stdout)
}

func runConnect(c *cli.Context) error {
	decl, err := loadDeclaration(c)
	if err != nil {
		return err
	}
	h2f, f2h := decl.Specs()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		cancel()
	}()

	engine := l2.NewEngine(h2f, f2h)
	if err := engine.Start(ctx, c.String("host"), c.Int("port")); err != nil {
		return err
	}
	defer engine.Finish()

	color.Green("vf2demo ▶ connected, h2f_n=%d f2h_n=%d", len(h2f), len(f2h))
	return repl(ctx, engine)
}

// repl is a minimal line-oriented console for the interactive session:
//
//	enqueue <qid> <hex>
//	pop <qid>
//	show
//	quit
func repl(ctx context.Context, e *l2.Engine) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("commands: enqueue <qid> <hex>, pop <qid>, show, quit")
	for {
		fmt.Print("vf2> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit", "exit":
			return nil
		case "show":
			if err := e.ShowAllQueues(os.Stdout); err != nil {
				color.Red("show: %v", err)
			}
		case "enqueue":
			if err := doEnqueue(e, fields); err != nil {
				color.Red("enqueue: %v", err)
			}
		case "pop":
			if err := doPop(e, fields); err != nil {
				color.Red("pop: %v", err)
			}
		default:
			color.Yellow("unrecognized command %q", fields[0])
		}
	}
}

func doEnqueue(e *l2.Engine, fields []string) error {
	if len(fields) != 3 {
		return fmt.Errorf("usage: enqueue <qid> <hex>")
	}
	qid, err := strconv.ParseUint(fields[1], 10, 8)
	if err != nil {
		return err
	}
	item, err := hex.DecodeString(fields[2])
	if err != nil {
		return err
	}
	return e.Enqueue(uint8(qid), item)
}

func doPop(e *l2.Engine, fields []string) error {
	if len(fields) != 2 {
		return fmt.Errorf("usage: pop <qid>")
	}
	qid, err := strconv.ParseUint(fields[1], 10, 8)
	if err != nil {
		return err
	}

	width, err := f2hWidth(e, uint8(qid))
	if err != nil {
		return err
	}
	out := make([]byte, width)
	if err := e.Pop(uint8(qid), out); err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(out))
	return nil
}

// f2hWidth looks up the declared item width of an F2H queue from a
// snapshot, since Pop needs an exactly-sized buffer and the REPL has no
// other record of the declaration once the engine is running.
func f2hWidth(e *l2.Engine, qid uint8) (uint8, error) {
	for _, s := range e.Snapshot() {
		if s.Dir == l2.DirF2H && s.ID == qid {
			return s.WidthBytes, nil
		}
	}
	return 0, l2.ErrInvalidQID
}
