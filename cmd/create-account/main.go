package main

import (
	"fmt"
	"os"

	"maildispatch/backend/internal/config"
	"maildispatch/backend/internal/logger"
	"maildispatch/backend/internal/secret"
	"maildispatch/backend/internal/service"
	"maildispatch/backend/internal/storage"
	"maildispatch/backend/internal/storage/memory"
	sqlstore "maildispatch/backend/internal/storage/sql"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: create-account <name> <email> <password>")
		os.Exit(1)
	}

	name := os.Args[1]
	email := os.Args[2]
	password := os.Args[3]

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 创建存储
	var store storage.Store
	switch cfg.Database.Type {
	case "mysql":
		store, err = sqlstore.NewMySQLStore(cfg.Database.DSN)
	case "postgres":
		store, err = sqlstore.NewStore(cfg.Database.DSN)
	case "":
		store = memory.NewStore()
		fmt.Println("Warning: no database configured, account exists only in memory.")
	default:
		fmt.Printf("Unsupported database type: %s\n", cfg.Database.Type)
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("Failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	keeper, err := secret.NewKeeper(cfg.Secret.Key)
	if err != nil {
		fmt.Printf("Failed to initialize secret keeper: %v\n", err)
		os.Exit(1)
	}
	if cfg.Secret.Key == nil {
		fmt.Println("Warning: secret.key not configured, password stored in plaintext.")
	}

	accounts := service.NewAccountService(store, keeper, logger.NewDevelopment())
	account, err := accounts.Register(name, email, password)
	if err != nil {
		fmt.Printf("Failed to create account: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Account created successfully!\n")
	fmt.Printf("  ID:    %d\n", account.ID)
	fmt.Printf("  Name:  %s\n", account.AccountName)
	fmt.Printf("  Email: %s\n", account.Email)
}
