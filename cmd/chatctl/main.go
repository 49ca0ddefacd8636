// Command chatctl is a terminal client of the chat server.
//
// Lines typed at the prompt are sent to the selected partner. Lines starting
// with a slash are commands, see /help.
package main

import (
	"bufio"
	"chat-relay/auth"
	"chat-relay/client"
	"chat-relay/session"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(log, config.URL, config.Timeout)
	authSession, err := api.Login(ctx, auth.LoginRequest{Email: config.Email, Password: config.Password})
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && config.Name != "" {
		authSession, err = api.Register(ctx, auth.RegisterRequest{
			Email: config.Email, Password: config.Password, Name: config.Name,
		})
	}
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	conn, err := api.Dial(ctx, config.BufferSize)
	if err != nil {
		return fmt.Errorf("websocket connection failed: %w", err)
	}
	defer conn.Close()

	out := newPrinter(os.Stdout, config.Colours, authSession.User.ID)
	player := session.NewBellPlayer(os.Stdout, log)
	preferences := session.NewPreferences(log, session.NewFileStorage(config.Preferences), player)
	cache := session.NewMessageCache()
	watcher := session.NewWatcher(log, conn, cache, preferences, player)
	watcher.OnMessage(out.message)
	chat := session.New(log, authSession.User, preferences, player, cache, watcher, api)
	defer chat.Close()

	r := &repl{
		api:         api,
		session:     chat,
		composer:    session.NewComposer(log, chat, api, preferences, player),
		preferences: preferences,
		out:         out,
	}
	out.info("Connected as %s <%s>, type /help", authSession.User.Name, authSession.User.Email)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-conn.Done():
			return errors.New("connection closed by server")
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := r.handle(ctx, line); quit {
				return nil
			}
		}
	}
}
