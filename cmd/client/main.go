// Command client is a line-oriented terminal player for a shashkrid server.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/shashkrid/internal/client"
	"github.com/robalobadob/shashkrid/internal/config"
	"github.com/robalobadob/shashkrid/internal/protocol"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	config.ApplyLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := os.Stdout
	var c *client.Client
	c, err = client.Dial(ctx, cfg.Server, protocol.PlayerPreferences{
		PlayerName: cfg.Player,
		GameName:   cfg.Game,
		WantsBlack: cfg.WantsBlack,
	}, func(msg protocol.ServerMessage) {
		st := c.State()
		fmt.Fprintln(out, describe(msg, st))
		if msg.Type == protocol.GameStarted || msg.Type == protocol.NewTurn {
			renderBoard(out, st)
		}
	})
	if err != nil {
		log.Fatal().Err(err).Str("server", cfg.Server).Msg("failed to connect")
	}
	log.Info().Str("server", cfg.Server).Str("game", cfg.Game).Msg("waiting for an opponent")

	go readCommands(os.Stdin, out, c, stop)

	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("connection lost")
	}
	log.Info().Msg("disconnected")
}

// readCommands drives the client from r until EOF or quit.
func readCommands(r io.Reader, out io.Writer, c *client.Client, quit func()) {
	defer quit()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		cmd, err := parseCommand(sc.Text())
		switch {
		case errors.Is(err, errEmpty):
			continue
		case err != nil:
			fmt.Fprintln(out, err)
			continue
		}
		if cmd.verb == verbQuit {
			_ = c.Close()
			return
		}
		if err := execute(out, c, cmd); err != nil {
			fmt.Fprintln(out, err)
		}
	}
}

func execute(out io.Writer, c *client.Client, cmd command) error {
	switch cmd.verb {
	case verbMove:
		return c.Move(cmd.from, cmd.to)
	case verbPromote:
		return c.Promote(cmd.from, cmd.kind)
	case verbReach:
		if !c.InGame() {
			return client.ErrNoGame
		}
		fmt.Fprintln(out, c.Reachable(cmd.from))
	case verbBoard:
		if !c.InGame() {
			return client.ErrNoGame
		}
		renderBoard(out, c.State())
	case verbAgain:
		return c.Replay()
	case verbHelp:
		fmt.Fprintln(out, usage)
	}
	return nil
}
