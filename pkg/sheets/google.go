package sheets

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"leaguesync/pkg/errors"
	"leaguesync/pkg/logger"
)

// GoogleClient talks to the Google Sheets API with a service account
type GoogleClient struct {
	svc     *sheetsapi.Service
	limiter *rate.Limiter
	timeout time.Duration
	logger  *logger.Logger
}

// GoogleOptions tunes throttling and per-call timeouts
type GoogleOptions struct {
	RequestsPerSecond float64
	Timeout           time.Duration
}

// NewGoogleClient builds a client from service-account JSON credentials
func NewGoogleClient(ctx context.Context, credentialsJSON []byte, opts GoogleOptions, log *logger.Logger) (*GoogleClient, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse google credentials: %w", err)
	}

	svc, err := sheetsapi.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return newGoogleClient(svc, opts, log), nil
}

func newGoogleClient(svc *sheetsapi.Service, opts GoogleOptions, log *logger.Logger) *GoogleClient {
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &GoogleClient{
		svc:     svc,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		timeout: opts.Timeout,
		logger:  log,
	}
}

func (c *GoogleClient) ListSheets(ctx context.Context, spreadsheetID string) ([]Sheet, error) {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	resp, err := c.svc.Spreadsheets.Get(spreadsheetID).
		Fields(googleapi.Field("sheets.properties.title")).
		Context(ctx).
		Do()
	if err != nil {
		c.logger.WithError(err).WithField("spreadsheet_id", spreadsheetID).Error("Failed to list sheets")
		return nil, mapError("Failed to list spreadsheet tabs", err)
	}

	out := make([]Sheet, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties == nil {
			continue
		}
		out = append(out, Sheet{Title: s.Properties.Title})
	}
	return out, nil
}

func (c *GoogleClient) ReadRange(ctx context.Context, spreadsheetID, sheetTitle, rng string) ([][]string, error) {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, A1(sheetTitle, rng)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		c.logger.WithError(err).WithFields(map[string]interface{}{
			"spreadsheet_id": spreadsheetID,
			"sheet":          sheetTitle,
		}).Error("Failed to read range")
		return nil, mapError("Failed to read spreadsheet range", err)
	}

	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		rows[i] = cells
	}
	return rows, nil
}

func (c *GoogleClient) WriteRange(ctx context.Context, spreadsheetID, sheetTitle, rng string, rows [][]string) error {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, v := range row {
			values[i][j] = v
		}
	}

	_, err = c.svc.Spreadsheets.Values.Update(spreadsheetID, A1(sheetTitle, rng), &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return mapError("Failed to write spreadsheet range", err)
	}
	return nil
}

// begin applies the rate limit and the per-call timeout
func (c *GoogleClient) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, errors.NewUpstreamError("Spreadsheet rate limit wait aborted", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	return ctx, cancel, nil
}

func mapError(message string, err error) error {
	var gerr *googleapi.Error
	if stderrors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return errors.NewNotFoundError("Spreadsheet or sheet not found")
	}
	return errors.NewUpstreamError(message, err)
}
