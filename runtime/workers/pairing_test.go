package workers

import (
	"context"
	"io"
	"testing"
	"time"

	"blindchat/domain"
	"blindchat/domain/wire"
	"blindchat/errors"
	"blindchat/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestPairingWorker_Pairs_On_Wake(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Given two waiting clients ready to be paired
	aliceConn := newScriptConn()
	bobConn := newScriptConn()
	sess := domain.NewSession(
		domain.NewHandle("alice", aliceConn),
		domain.NewHandle("bob", bobConn))

	matchmaker := mocks.NewMockIMatchmaker(ctrl)
	gomock.InOrder(
		matchmaker.EXPECT().TryPair().Return(sess, nil),
		matchmaker.EXPECT().TryPair().Return(nil, nil),
	)

	wake := make(chan struct{}, 1)
	wake <- struct{}{}

	worker := NewPairingWorker(discardLogger(), matchmaker, wake)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// Then both sides learn about the new chat
	req.Eventually(func() bool {
		return len(aliceConn.Sent()) == 1 && len(bobConn.Sent()) == 1
	}, time.Second, 5*time.Millisecond, "both clients should be notified")

	cancel()
	req.ErrorIs(<-done, context.Canceled)

	req.Equal([]wire.Frame{{Kind: wire.ChatFound}}, aliceConn.Sent())
	req.Equal([]wire.Frame{{Kind: wire.ChatFound}}, bobConn.Sent())
}

func TestPairingWorker_Survives_A_Healed_Queue(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Given a matchmaker that hit an inconsistency and repaired itself
	matchmaker := mocks.NewMockIMatchmaker(ctrl)
	gomock.InOrder(
		matchmaker.EXPECT().TryPair().Return(nil, errors.ErrInvariant),
		matchmaker.EXPECT().TryPair().Return(nil, nil),
	)

	wake := make(chan struct{}, 1)
	wake <- struct{}{}

	worker := NewPairingWorker(discardLogger(), matchmaker, wake)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// Then the worker keeps draining instead of dying
	req.Eventually(ctrl.Satisfied, time.Second, 5*time.Millisecond)

	cancel()
	req.ErrorIs(<-done, context.Canceled)
}

func TestPairingWorker_Cleans_Up_Unreachable_Pairs(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Given a pair whose first member silently vanished
	aliceConn := &scriptConn{sendErr: io.ErrClosedPipe}
	bobConn := newScriptConn()
	alice := domain.NewHandle("alice", aliceConn)
	sess := domain.NewSession(alice, domain.NewHandle("bob", bobConn))

	cleaned := make(chan *domain.Handle, 1)

	matchmaker := mocks.NewMockIMatchmaker(ctrl)
	gomock.InOrder(
		matchmaker.EXPECT().TryPair().Return(sess, nil),
		matchmaker.EXPECT().TryPair().Return(nil, nil),
	)
	matchmaker.EXPECT().
		Cleanup(alice, domain.Dropped).
		Do(func(h *domain.Handle, _ domain.DepartureCause) {
			cleaned <- h
		}).
		Times(1)

	wake := make(chan struct{}, 1)
	wake <- struct{}{}

	worker := NewPairingWorker(discardLogger(), matchmaker, wake)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	select {
	case h := <-cleaned:
		req.Equal(alice, h)
	case <-time.After(time.Second):
		req.Fail("unreachable handle should be cleaned up")
	}

	cancel()
	req.ErrorIs(<-done, context.Canceled)

	// The reachable side still got its notification
	req.Equal([]wire.Frame{{Kind: wire.ChatFound}}, bobConn.Sent())
}
