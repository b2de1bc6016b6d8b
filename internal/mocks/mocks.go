package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"relay-service/internal/persistence"
	"relay-service/internal/telemetry"
)

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

type SnapshotStoreMock struct {
	mock.Mock
}

func (m *SnapshotStoreMock) Save(snap persistence.Snapshot) error {
	args := m.Called(snap)
	return args.Error(0)
}

func (m *SnapshotStoreMock) Load() (persistence.Snapshot, error) {
	args := m.Called()
	var snap persistence.Snapshot
	if val := args.Get(0); val != nil {
		snap = val.(persistence.Snapshot)
	}
	return snap, args.Error(1)
}

var _ telemetry.Publisher = (*PublisherMock)(nil)
var _ persistence.Store = (*SnapshotStoreMock)(nil)
