// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package lifecycle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"storj.io/common/testcontext"
)

func TestGroup(t *testing.T) {
	ctx := testcontext.New(t)

	group := NewGroup(zaptest.NewLogger(t))

	var closed []string
	ran := make(chan string, 2)
	for _, name := range []string{"first", "second"} {
		name := name
		group.Add(Item{
			Name: name,
			Run: func(ctx context.Context) error {
				ran <- name
				<-ctx.Done()
				return ctx.Err()
			},
			Close: func() error {
				closed = append(closed, name)
				return nil
			},
		})
	}
	group.Add(Item{Name: "no-run"})

	runCtx, cancel := context.WithCancel(ctx)
	var g errgroup.Group
	group.Run(runCtx, &g)

	got := map[string]bool{<-ran: true, <-ran: true}
	require.Equal(t, map[string]bool{"first": true, "second": true}, got)

	cancel()
	require.ErrorIs(t, g.Wait(), context.Canceled)

	require.NoError(t, group.Close())
	require.Equal(t, []string{"second", "first"}, closed)
}

func TestGroupCloseCombinesErrors(t *testing.T) {
	group := NewGroup(zaptest.NewLogger(t))

	errA, errB := errors.New("a"), errors.New("b")
	group.Add(Item{Name: "a", Close: func() error { return errA }})
	group.Add(Item{Name: "b", Close: func() error { return errB }})

	err := group.Close()
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)
}

func TestCondenseStack(t *testing.T) {
	stack := strings.Join([]string{
		"goroutine 1 [running]:",
		"main.work(0x1)",
		"\t/src/main.go:12 +0x1d",
		"created by main.main in goroutine 1",
		"\t/src/main.go:20 +0x25",
		"",
	}, "\n")

	out := string(condenseStack([]byte(stack)))
	require.Equal(t, "goroutine 1\n\tmain.work:12\n", out)
}
