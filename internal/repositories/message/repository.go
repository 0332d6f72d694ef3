package message

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/database"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/models"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/tracing"
)

const table = "messages"

var columns = []string{"id", "text", "phone_number", "sent_at", "role", "message_type"}

// Query selects internal messages inside a window, bounds inclusive.
// An empty PhoneNumbers matches every number.
type Query struct {
	Start        time.Time
	End          time.Time
	PhoneNumbers []string
}

// Repository reads and writes the internal message log
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// List returns messages ordered by sent time ascending
func (r *Repository) List(ctx context.Context, q Query) ([]models.InternalMessageRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "message.Repository.List")
	defer span.End()

	sb := r.db.Flavor().NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.GreaterEqualThan("sent_at", q.Start.UTC()),
		sb.LessEqualThan("sent_at", q.End.UTC()),
	)
	if len(q.PhoneNumbers) > 0 {
		sb.Where(sb.In("phone_number", sqlbuilder.Flatten(q.PhoneNumbers)...))
	}
	sb.OrderBy("sent_at ASC", "id ASC")
	query, args := sb.Build()

	records := make([]models.InternalMessageRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"start": q.Start,
			"end":   q.End,
		}).Error("Failed to list messages")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list messages")
	}

	for i := range records {
		records[i].SentAt = records[i].SentAt.UTC()
	}
	return records, nil
}

// DistinctPhoneNumbers returns every phone number with a message in the window
func (r *Repository) DistinctPhoneNumbers(ctx context.Context, start, end time.Time) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "message.Repository.DistinctPhoneNumbers")
	defer span.End()

	sb := r.db.Flavor().NewSelectBuilder()
	sb.Select("phone_number").Distinct()
	sb.From(table)
	sb.Where(
		sb.GreaterEqualThan("sent_at", start.UTC()),
		sb.LessEqualThan("sent_at", end.UTC()),
	)
	sb.OrderBy("phone_number ASC")
	query, args := sb.Build()

	phoneNumbers := make([]string, 0)
	if err := r.db.SelectContext(ctx, &phoneNumbers, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list phone numbers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list phone numbers")
	}
	return phoneNumbers, nil
}

// CreateBatch inserts records, skipping any whose id already exists.
// It returns the number of rows inserted.
func (r *Repository) CreateBatch(ctx context.Context, records []models.InternalMessageRecord) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "message.Repository.CreateBatch")
	defer span.End()

	if len(records) == 0 {
		return 0, nil
	}

	const batchSize = 500
	var inserted int64
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.Tx) error {
		for i := 0; i < len(records); i += batchSize {
			end := min(i+batchSize, len(records))

			ib := database.NewInsertBuilder(r.db.Flavor())
			ib.InsertInto(table)
			ib.Cols(columns...)
			for _, rec := range records[i:end] {
				ib.Values(rec.ID, rec.Text, rec.PhoneNumber, rec.SentAt.UTC(), string(rec.Role), rec.MessageType)
			}
			ib.OnConflictDoNothing()
			query, args := ib.Build()

			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				r.logger.WithContext(ctx).WithError(err).WithField("batch_start", i).Error("Failed to insert messages")
				return err
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += n
			}
		}
		return nil
	})
	if err != nil {
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert messages")
	}
	return inserted, nil
}
