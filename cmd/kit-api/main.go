package main

import (
	"context"
	"log"
	"net/http"

	httpadapter "github.com/avadhbsd/DevinKitMCP/internal/adapters/http"
	"github.com/avadhbsd/DevinKitMCP/internal/adapters/kit"
	"github.com/avadhbsd/DevinKitMCP/internal/adapters/llm"
	"github.com/avadhbsd/DevinKitMCP/internal/adapters/storage/memory"
	"github.com/avadhbsd/DevinKitMCP/internal/app/dispatcher"
	"github.com/avadhbsd/DevinKitMCP/internal/app/operations"
	"github.com/avadhbsd/DevinKitMCP/internal/app/registry"
	"github.com/avadhbsd/DevinKitMCP/internal/config"
	"github.com/avadhbsd/DevinKitMCP/internal/domain"
)

// model is the combined classifier + formatter role one LLM client plays.
type model interface {
	domain.IntentClassifier
	domain.ResponseFormatter
}

func main() {
	ctx := context.Background()
	cfg := config.Load()

	// The conversation table is shared across requests and transports;
	// everything else is cheap and built per request around the caller's
	// credentials.
	store := memory.NewConversationStore(cfg.MaxHistory)

	janitor := memory.NewJanitor(store, cfg.ConversationTTL, cfg.CleanupInterval)
	janitor.Start(ctx)
	defer janitor.Stop()

	newModel := func(claudeKey string) model {
		if cfg.UseMockLLM {
			return llm.NewMockLLM()
		}
		return llm.NewClaudeClient(claudeKey, cfg.ClaudeModel)
	}
	newKit := func(kitKey string) *kit.Client {
		return kit.NewClient(kit.Config{APIKey: kitKey, BaseURL: cfg.KitBaseURL})
	}

	// Fail fast on a malformed operation table; per-request registries
	// below are built from the same declaration.
	if _, err := operations.NewRegistry(newKit(""), llm.NewMockLLM()); err != nil {
		log.Fatalf("error building operation registry: %v", err)
	}

	if cfg.UseMockLLM {
		log.Println("[LLM] Using MOCK LLM client")
	}

	newService := func(kitKey, claudeKey string) *dispatcher.Service {
		m := newModel(claudeKey)
		reg := mustRegistry(operations.NewRegistry(newKit(kitKey), m))
		return dispatcher.NewService(m, m, store, reg)
	}

	handler := httpadapter.NewServer(httpadapter.Options{
		Store:      store,
		NewService: newService,
		Probes: httpadapter.Probes{
			Kit: func(ctx context.Context, kitKey string) (map[string]any, error) {
				return newKit(kitKey).AccountInfo(ctx)
			},
			Claude: func(ctx context.Context, claudeKey string) error {
				_, err := newModel(claudeKey).Classify(ctx, "Test message", domain.Context{})
				return err
			},
		},
		DefaultKitKey:    cfg.KitAPIKey,
		DefaultClaudeKey: cfg.ClaudeAPIKey,
	})

	addr := ":" + cfg.Port
	log.Println("Kit chat API listening on", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatal(err)
	}
}

func mustRegistry(reg *registry.Registry, err error) *registry.Registry {
	if err != nil {
		log.Fatalf("error building operation registry: %v", err)
	}
	return reg
}
