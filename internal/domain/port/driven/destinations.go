package driven

import "context"

// RecordServer is the client port for REDCap-style research-data servers.
// Unauthorized responses surface as *model.CredentialsError.
type RecordServer interface {
	// VerifyToken checks that the API token is accepted by the server.
	VerifyToken(ctx context.Context, endpoint, token string) error

	// ImportRecord imports one flat record.
	ImportRecord(ctx context.Context, endpoint, token string, record map[string]string) error
}

// JSONEndpoint is the client port for generic JSON destinations: one POST
// per submission, authenticated with a configured auth key header.
type JSONEndpoint interface {
	Post(ctx context.Context, endpoint, authKey string, payload []byte) error
}

// WorksheetServer is the client port for spreadsheet append services.
// Rows are keyed by column name against the header row fixed at creation.
type WorksheetServer interface {
	// CreateWorksheet creates a worksheet with the given header row and
	// returns its identifier.
	CreateWorksheet(ctx context.Context, endpoint, apiKey, title string, header []string) (string, error)

	// AppendRow appends one keyed data row to an existing worksheet.
	AppendRow(ctx context.Context, endpoint, apiKey, worksheetID string, row map[string]string) error
}
