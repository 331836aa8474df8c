package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	kivik "github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb" // CouchDB driver
)

// CouchConfig configures a CouchDB-backed Store.
type CouchConfig struct {
	URL             string // server URL, e.g. http://localhost:5984
	Database        string // database name
	Username        string
	Password        string
	Timeout         time.Duration
	CreateIfMissing bool
}

// DefaultCouchConfig returns a CouchConfig with sensible defaults.
func DefaultCouchConfig() CouchConfig {
	return CouchConfig{
		URL:             "http://localhost:5984",
		Timeout:         30 * time.Second,
		CreateIfMissing: true,
	}
}

// CouchStore is a Store backed by a CouchDB database, one document per
// task record keyed by task id.
type CouchStore struct {
	client   *kivik.Client
	database *kivik.DB
	config   CouchConfig
}

// NewCouchStore connects to CouchDB per config, creating the database if
// it doesn't exist and config.CreateIfMissing is set.
func NewCouchStore(config CouchConfig) (*CouchStore, error) {
	connectionURL, err := buildConnectionURL(config)
	if err != nil {
		return nil, fmt.Errorf("store: failed to build connection URL: %w", err)
	}

	client, err := kivik.New("couch", connectionURL)
	if err != nil {
		return nil, fmt.Errorf("store: failed to create CouchDB client: %w", err)
	}

	ctx := context.Background()
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	exists, err := client.DBExists(ctx, config.Database)
	if err != nil {
		return nil, fmt.Errorf("store: failed to check database existence: %w", err)
	}
	if !exists {
		if !config.CreateIfMissing {
			return nil, fmt.Errorf("store: database %s does not exist", config.Database)
		}
		if err := client.CreateDB(ctx, config.Database); err != nil {
			return nil, fmt.Errorf("store: failed to create database %s: %w", config.Database, err)
		}
	}

	return &CouchStore{
		client:   client,
		database: client.DB(config.Database),
		config:   config,
	}, nil
}

func buildConnectionURL(config CouchConfig) (string, error) {
	if config.URL == "" {
		return "", fmt.Errorf("database URL cannot be empty")
	}
	if config.Username == "" && config.Password == "" {
		return config.URL, nil
	}
	parsed, err := url.Parse(config.URL)
	if err != nil {
		return "", fmt.Errorf("failed to parse database URL: %w", err)
	}
	parsed.User = url.UserPassword(config.Username, config.Password)
	return parsed.String(), nil
}

// couchDoc is a Record plus the CouchDB revision needed to update it.
type couchDoc struct {
	Record
	Rev string `json:"_rev,omitempty"`
}

// Put creates or updates the document for rec.TaskID. It looks up the
// current revision first; CouchDB rejects a write to an existing document
// that doesn't carry its current _rev.
func (c *CouchStore) Put(ctx context.Context, rec Record) error {
	doc := couchDoc{Record: rec}

	row := c.database.Get(ctx, rec.TaskID)
	if row.Err() == nil {
		var existing couchDoc
		if err := row.ScanDoc(&existing); err == nil {
			doc.Rev = existing.Rev
		}
	}

	if _, err := c.database.Put(ctx, rec.TaskID, doc); err != nil {
		return fmt.Errorf("store: failed to put record %s: %w", rec.TaskID, err)
	}
	return nil
}

// Get retrieves the record for taskID.
func (c *CouchStore) Get(ctx context.Context, taskID string) (Record, error) {
	row := c.database.Get(ctx, taskID)
	if row.Err() != nil {
		if kivik.HTTPStatus(row.Err()) == 404 {
			return Record{}, &ErrNotFound{TaskID: taskID}
		}
		return Record{}, fmt.Errorf("store: failed to get record %s: %w", taskID, row.Err())
	}

	var doc couchDoc
	if err := row.ScanDoc(&doc); err != nil {
		return Record{}, fmt.Errorf("store: failed to scan record %s: %w", taskID, err)
	}
	return doc.Record, nil
}

// ExistsTerminal reports whether taskID's record is Success or Failed. A
// missing document is reported as not terminal, not an error.
func (c *CouchStore) ExistsTerminal(ctx context.Context, taskID string) (bool, error) {
	rec, err := c.Get(ctx, taskID)
	if err != nil {
		var notFound *ErrNotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return rec.Status.IsTerminal(), nil
}

// FetchAll returns every task record in the database via a full AllDocs
// scan with documents included.
func (c *CouchStore) FetchAll(ctx context.Context) ([]Record, error) {
	rows := c.database.AllDocs(ctx, kivik.Param("include_docs", true))
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var doc couchDoc
		if err := rows.ScanDoc(&doc); err != nil {
			return nil, fmt.Errorf("store: failed to scan record during fetch-all: %w", err)
		}
		out = append(out, doc.Record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: failed to list records: %w", err)
	}
	return out, nil
}

// Close releases the underlying CouchDB client connection.
func (c *CouchStore) Close() error {
	return c.client.Close()
}

var _ Store = (*CouchStore)(nil)
