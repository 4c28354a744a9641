package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"

	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/chatloop/chatloop"
	"github.com/chatloop/chatloop/internal/logging"
	"github.com/chatloop/chatloop/pkg/adapters/console"
	"github.com/chatloop/chatloop/pkg/adapters/file"
	"github.com/chatloop/chatloop/pkg/adapters/memory"
	"github.com/chatloop/chatloop/pkg/adapters/mongo"
	"github.com/chatloop/chatloop/pkg/adapters/redis"
	"github.com/chatloop/chatloop/pkg/persistence/middleware"
	"github.com/chatloop/chatloop/pkg/ports"
	"github.com/chatloop/chatloop/pkg/session"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a console chat session against a steps document",
	Long:  `Loads step handlers from a JSON document and starts an interactive console conversation. Type messages on stdin; Ctrl-D ends the session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stepsPath, _ := cmd.Flags().GetString("steps")
		storeKind, _ := cmd.Flags().GetString("store")
		initial, _ := cmd.Flags().GetString("initial")
		chatID, _ := cmd.Flags().GetString("chat-id")
		debug, _ := cmd.Flags().GetBool("debug")

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		store, locker, cleanup, err := buildStore(ctx, cmd, storeKind)
		if err != nil {
			return err
		}
		defer cleanup()

		store, err = wrapStore(store)
		if err != nil {
			return err
		}

		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		logger := logging.New(level)

		guardOpts := []session.Option{session.WithLogger(logger)}
		if locker != nil {
			guardOpts = append(guardOpts, session.WithLocker(locker))
		}
		guard := session.NewGuard(guardOpts...)

		orch := chatloop.New(store, console.New(),
			chatloop.WithInitialState(initial),
			chatloop.WithLogger(logger),
		)
		if err := orch.Registry().LoadFile(stepsPath); err != nil {
			return fmt.Errorf("load steps: %w", err)
		}

		fmt.Printf("Loaded states: %v\n", orch.Registry().States())
		fmt.Println("Type a message and press Enter. Ctrl-D to quit.")

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			text := scanner.Text()
			err := guard.Do(ctx, chatID, func(ctx context.Context) error {
				return orch.HandleMessage(ctx, chatID, text)
			})
			if err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		}
		return scanner.Err()
	},
}

// buildStore picks the persistence backend from the --store flag. The redis
// backend also provides a distributed locker so replicas can share chats.
func buildStore(ctx context.Context, cmd *cobra.Command, kind string) (ports.StateStore, ports.DistributedLocker, func(), error) {
	noop := func() {}
	switch kind {
	case "memory":
		return memory.NewStore(), nil, noop, nil
	case "file":
		dir, _ := cmd.Flags().GetString("state-dir")
		return file.New(dir), nil, noop, nil
	case "redis":
		url, _ := cmd.Flags().GetString("redis-url")
		opts, err := backend.ParseURL(url)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("parse redis url: %w", err)
		}
		client := backend.NewClient(opts)
		store := redis.NewFromClient(client)
		locker := redis.NewLocker(client, "chatloop:")
		return store, locker, func() { _ = store.Close() }, nil
	case "mongo":
		uri, _ := cmd.Flags().GetString("mongo-uri")
		store, err := mongo.New(ctx, uri, "chatloop", "states")
		if err != nil {
			return nil, nil, noop, err
		}
		return store, nil, func() { _ = store.Close(context.Background()) }, nil
	default:
		return nil, nil, noop, fmt.Errorf("unknown store backend %q (want memory, file, redis, or mongo)", kind)
	}
}

// wrapStore layers opt-in persistence middleware around the backend.
// CHATLOOP_ENCRYPTION_KEY holds a base64-encoded 32-byte AES key.
func wrapStore(store ports.StateStore) (ports.StateStore, error) {
	if encoded := os.Getenv("CHATLOOP_ENCRYPTION_KEY"); encoded != "" {
		key, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode CHATLOOP_ENCRYPTION_KEY: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("CHATLOOP_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
		}
		store = middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: key})(store)
	}
	return store, nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("steps", "steps.json", "Path to the JSON steps document")
	runCmd.Flags().String("store", "memory", "State backend: memory, file, redis, or mongo")
	runCmd.Flags().String("state-dir", "chat_states", "Directory for the file backend")
	runCmd.Flags().String("redis-url", "redis://localhost:6379/0", "Redis URL for the redis backend")
	runCmd.Flags().String("mongo-uri", "mongodb://localhost:27017", "MongoDB URI for the mongo backend")
	runCmd.Flags().String("initial", "start", "Initial state for unseen chats")
	runCmd.Flags().String("chat-id", "console", "Chat ID for this console session")
	runCmd.Flags().Bool("debug", false, "Enable debug logging")
}
