// internal/workers/feed_processor_test.go
package workers_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/bookmybike/marketplace-be/internal/workers"
	"github.com/bookmybike/marketplace-be/test/helpers"
	"github.com/bookmybike/marketplace-be/test/mocks"
)

func TestFeedProcessor_ProcessFeed(t *testing.T) {
	tests := []struct {
		name          string
		feed          string
		setupMocks    func(*mocks.MockCatalogService)
		expectedError bool
		errorContains string
	}{
		{
			name: "successfully_processes_valid_feed",
			feed: `[
				{"make": "Honda", "model": "Activa", "variant": "6G STD", "body_type": "scooter",
				 "fuel_type": "petrol", "ex_showroom": "78000", "on_road": "92000",
				 "specs": {"displacement_cc": 109.5, "front_brake": "drum", "rear_brake": "drum"}},
				{"make": "Bajaj", "model": "Chetak", "variant": "Premium", "body_type": "scooter",
				 "fuel_type": "ev", "ex_showroom": "125000"}
			]`,
			setupMocks: func(service *mocks.MockCatalogService) {
				service.On("BulkUpsert", mock.Anything, mock.MatchedBy(func(variants []domain.VehicleVariant) bool {
					return len(variants) == 2 &&
						variants[0].Make == "Honda" &&
						variants[0].BodyType == domain.BodyScooter &&
						variants[1].FuelType == domain.FuelEV
				})).Return(nil)
			},
			expectedError: false,
		},
		{
			name:          "rejects_malformed_feed",
			feed:          `{"not": "an array"}`,
			setupMocks:    func(service *mocks.MockCatalogService) {},
			expectedError: true,
			errorContains: "failed to parse feed file",
		},
		{
			name: "propagates_upsert_failure",
			feed: `[{"make": "Honda", "model": "Shine", "body_type": "motorcycle", "fuel_type": "petrol", "ex_showroom": "65000"}]`,
			setupMocks: func(service *mocks.MockCatalogService) {
				service.On("BulkUpsert", mock.Anything, mock.Anything).
					Return(assert.AnError)
			},
			expectedError: true,
			errorContains: "failed to upsert feed variants",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(mocks.MockCatalogService)
			tt.setupMocks(service)

			cache := new(mocks.MockCacheRepository)
			cache.On("SetWithTTL", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(nil).Maybe()

			processor := workers.NewFeedProcessor(service, cache, helpers.TestLogger())

			payload := workers.FeedJobPayload{
				JobID:    uuid.New().String(),
				FilePath: helpers.CreateTempFile(t, []byte(tt.feed), ".json"),
			}

			payloadBytes, err := json.Marshal(payload)
			require.NoError(t, err)

			task := asynq.NewTask(workers.TypeFeedProcess, payloadBytes)

			err = processor.ProcessFeed(context.Background(), task)

			if tt.expectedError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				require.NoError(t, err)
			}
			service.AssertExpectations(t)
		})
	}
}

func TestFeedProcessor_ProcessFeed_MissingFile(t *testing.T) {
	service := new(mocks.MockCatalogService)
	cache := new(mocks.MockCacheRepository)
	cache.On("SetWithTTL", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Maybe()
	processor := workers.NewFeedProcessor(service, cache, helpers.TestLogger())

	payload := workers.FeedJobPayload{
		JobID:    uuid.New().String(),
		FilePath: "/nonexistent/feed.json",
	}
	payloadBytes, err := json.Marshal(payload)
	require.NoError(t, err)

	err = processor.ProcessFeed(context.Background(), asynq.NewTask(workers.TypeFeedProcess, payloadBytes))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read feed file")
	service.AssertNotCalled(t, "BulkUpsert")
}
