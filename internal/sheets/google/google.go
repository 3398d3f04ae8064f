package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"chitfund/internal/core"
	ports "chitfund/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client exports monthly slips to a Google Spreadsheet. Every chitty
// gets its own sheet (tab) named after the fund, and each month owns a
// fixed block of rows so re-exports overwrite in place.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var _ ports.SlipWriter = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// WriteSlip writes the slip's records into the chitty's sheet. The
// block for month m starts at a row derived from the month and the
// member count, so the same month always lands in the same cells.
func (c *Client) WriteSlip(ctx context.Context, chitty core.Chitty, slip core.MonthlySlip) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if err := c.ensureSheet(ctx, chitty.Name); err != nil {
		return "", err
	}

	startRow := slipStartRow(slip.Month, chitty.TotalMembers)
	endRow := startRow + len(slip.Records)
	rng := fmt.Sprintf("%s!A%d:F%d", sheetTitle(chitty.Name), startRow, endRow)

	values := make([][]any, 0, len(slip.Records)+1)
	values = append(values, []any{
		fmt.Sprintf("Month %d", slip.Month),
		slip.SlipDate.Format("2006-01-02"),
		"", "", "", "",
	})
	for _, rec := range slip.Records {
		values = append(values, []any{
			"",
			rec.MemberName,
			rec.Amount.String(),
			boolCell(rec.Paid),
			boolCell(rec.Lifted),
			paymentDateCell(rec),
		})
	}

	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update range %s: %w", rng, err)
	}
	return rng, nil
}

// ensureSheet adds a tab for the chitty if the spreadsheet doesn't
// have one yet.
func (c *Client) ensureSheet(ctx context.Context, name string) error {
	title := sheetTitle(name)
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sheet := range ss.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", title, err)
	}
	slog.InfoContext(ctx, "Created sheet for chitty", "sheet", title)
	return nil
}

// slipStartRow returns the first row of the block reserved for the
// given month. Each block holds a title row plus one row per member.
func slipStartRow(month, totalMembers int) int {
	blockHeight := totalMembers + 2
	return 1 + (month-1)*blockHeight
}

func sheetTitle(name string) string {
	// Sheet titles cannot contain some punctuation; apostrophes also
	// complicate A1 range quoting, so strip the troublemakers.
	replacer := strings.NewReplacer("'", "", ":", "-", "/", "-", "\\", "-", "[", "(", "]", ")", "*", "", "?", "")
	title := strings.TrimSpace(replacer.Replace(name))
	if title == "" {
		title = "Chitty"
	}
	if len(title) > 100 {
		title = title[:100]
	}
	return title
}

func boolCell(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func paymentDateCell(rec core.PaymentRecord) string {
	if rec.PaymentDate.IsZero() {
		return ""
	}
	return rec.PaymentDate.Format("2006-01-02")
}
