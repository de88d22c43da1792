package dispatch

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mehanizm/airtable"

	"github.com/AnshRaj112/flags-survey-backend/internal/models"
)

// AirtableTable is the table every response is created in.
const AirtableTable = "Responses"

// AirtableStore creates one Airtable record per submission.
type AirtableStore struct {
	table *airtable.Table
}

// NewAirtableStore builds a store for baseID. baseURL and httpClient are
// optional and exist so tests can point the client at a fake API.
func NewAirtableStore(apiKey, baseID, baseURL string, httpClient *http.Client) (*AirtableStore, error) {
	client := airtable.NewClient(apiKey)
	if baseURL != "" {
		if err := client.SetBaseURL(baseURL); err != nil {
			return nil, fmt.Errorf("airtable base url: %w", err)
		}
	}
	if httpClient != nil {
		client.SetCustomClient(httpClient)
	}
	return &AirtableStore{table: client.GetTable(baseID, AirtableTable)}, nil
}

func (s *AirtableStore) Name() string { return "airtable" }

func (s *AirtableStore) Deliver(ctx context.Context, sub *models.Submission) error {
	_, err := s.table.AddRecordsContext(ctx, &airtable.Records{
		Records: []*airtable.Record{{Fields: RecordFields(sub)}},
	})
	if err != nil {
		return fmt.Errorf("create airtable record: %w", err)
	}
	return nil
}

// RecordFields is the flat column set shared by the document-shaped stores.
func RecordFields(sub *models.Submission) map[string]any {
	fields := make(map[string]any, len(sub.Answers)+4)
	fields["id"] = sub.Identifier()
	fields["flags"] = sub.FlagsString()
	for _, a := range sub.Answers {
		fields[a.Key] = a.Value
	}
	fields["platforms"] = sub.Platforms
	fields["submissionId"] = sub.ID.String()
	return fields
}
