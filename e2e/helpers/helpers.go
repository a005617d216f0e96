package helpers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MichalMitros/evend-publisher/internal/platform/models"
	"github.com/MichalMitros/evend-publisher/internal/platform/models/modelstesting"
	"github.com/MichalMitros/evend-publisher/internal/platform/storage"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

const (
	contentType = "Content-Type"
	waitTimeout = 2 * time.Minute
)

// WaitForRunToBeFinished is blocking helper function, returns latest run of tenant created after since
// once it is finished.
func WaitForRunToBeFinished(t *testing.T, runs storage.Postgres, tenantID string, since int) *models.Run {
	t.Helper()

	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		<-time.After(time.Millisecond * 250)

		run, err := runs.LatestRun(context.Background(), tenantID)
		if errors.Is(err, storage.ErrRunNotFound) {
			continue
		}
		require.NoError(t, err, "can't get latest run")

		if run.ID > since && run.FinishedAt != nil {
			return run
		}
	}

	require.FailNow(t, "run wasn't finished in time", tenantID)

	return nil
}

// PrepareImageServer is helper function for mocking image hosting.
// Every image body is its URL path.
func PrepareImageServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(wrt http.ResponseWriter, req *http.Request) {
		wrt.Header().Add(contentType, "image/jpeg")
		wrt.WriteHeader(http.StatusOK)
		_, _ = wrt.Write([]byte(req.URL.Path))
	}))

	t.Cleanup(func() {
		srv.Close()
	})

	return srv
}

// GenerateListings generates n listings titled "Listing 1" to "Listing n", each with two images on imageHost.
func GenerateListings(t *testing.T, n int, imageHost string) []models.Listing {
	t.Helper()

	results := make([]models.Listing, n)

	for ix := range n {
		results[ix] = modelstesting.FakeListing(func(l *models.Listing) {
			l.Index = ix
			l.Title = fmt.Sprintf("Listing %d", ix+1)
			l.ImageURLs = []string{
				fmt.Sprintf("%s/%d/front.jpg", imageHost, ix+1),
				fmt.Sprintf("%s/%d/back.jpg", imageHost, ix+1),
			}
		})
	}

	return results
}

// WriteListingsCSV writes listings as a listings file in dir and returns its path.
func WriteListingsCSV(t *testing.T, dir string, listings []models.Listing) string {
	t.Helper()

	path := filepath.Join(dir, "listings.csv")
	file, err := os.Create(path)
	require.NoError(t, err, "can't create listings file")
	defer file.Close()

	writer := csv.NewWriter(file)
	records := [][]string{{
		"sku", "type_annonce", "categorie", "titre", "description", "condition",
		"retour", "garantie", "prix", "stock", "photo_defaut",
	}}
	for _, l := range listings {
		records = append(records, []string{
			l.SKU, l.AdType, l.Category, l.Title, l.Description, l.Condition,
			l.Returns, l.Warranty, l.Price, l.Stock, strings.Join(l.ImageURLs, ";"),
		})
	}

	require.NoError(t, writer.WriteAll(records), "can't write listings file")

	return path
}

// DeleteRMQQueue is helper function for deleting RMQ queue after test is finished.
func DeleteRMQQueue(t *testing.T, channel *amqp.Channel, queueName string) {
	t.Helper()

	t.Cleanup(func() {
		if _, err := channel.QueueDelete(queueName, false, false, true); err != nil {
			require.FailNow(t, "can't delete queue", queueName, err)
		}
	})
}
