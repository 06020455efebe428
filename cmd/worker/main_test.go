package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ledgerbook/ledger/internal/app"
	_ "github.com/ledgerbook/ledger/testing"
)

func TestRunRequiresPostgres(t *testing.T) {
	cfg := &app.Config{Store: app.StoreMemory}

	err := run(context.Background(), cfg, slog.New(slog.DiscardHandler))
	assert.ErrorContains(t, err, "LEDGER_STORE=postgres")
}
