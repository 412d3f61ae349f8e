// Package sqlcgen holds the hand-written query layer in sqlc style: one
// const per statement, typed params, explicit Scan loops.
package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const listClients = `-- name: ListClients :many
SELECT client_id, client_name
FROM clients
ORDER BY client_name, client_id
`

func (q *Queries) ListClients(ctx context.Context) ([]Client, error) {
	rows, err := q.db.Query(ctx, listClients)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ClientID, &c.ClientName); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const getClient = `-- name: GetClient :one
SELECT client_id, client_name
FROM clients
WHERE client_id = $1
`

func (q *Queries) GetClient(ctx context.Context, clientID int64) (Client, error) {
	var c Client
	err := q.db.QueryRow(ctx, getClient, clientID).Scan(&c.ClientID, &c.ClientName)
	return c, err
}

const getClientByName = `-- name: GetClientByName :one
SELECT client_id, client_name
FROM clients
WHERE client_name = $1
ORDER BY client_id
LIMIT 1
`

func (q *Queries) GetClientByName(ctx context.Context, clientName string) (Client, error) {
	var c Client
	err := q.db.QueryRow(ctx, getClientByName, clientName).Scan(&c.ClientID, &c.ClientName)
	return c, err
}

const createClient = `-- name: CreateClient :one
INSERT INTO clients (client_name)
VALUES ($1)
RETURNING client_id, client_name
`

func (q *Queries) CreateClient(ctx context.Context, clientName string) (Client, error) {
	var c Client
	err := q.db.QueryRow(ctx, createClient, clientName).Scan(&c.ClientID, &c.ClientName)
	return c, err
}

const updateClient = `-- name: UpdateClient :one
UPDATE clients
SET client_name = $2
WHERE client_id = $1
RETURNING client_id, client_name
`

func (q *Queries) UpdateClient(ctx context.Context, clientID int64, clientName string) (Client, error) {
	var c Client
	err := q.db.QueryRow(ctx, updateClient, clientID, clientName).Scan(&c.ClientID, &c.ClientName)
	return c, err
}

const deleteClient = `-- name: DeleteClient :execrows
DELETE FROM clients
WHERE client_id = $1
`

func (q *Queries) DeleteClient(ctx context.Context, clientID int64) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteClient, clientID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const listSites = `-- name: ListSites :many
SELECT site_id, site_name, site_address, lat_dec, long_dec
FROM sites
ORDER BY site_id
`

func (q *Queries) ListSites(ctx context.Context) ([]Site, error) {
	rows, err := q.db.Query(ctx, listSites)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Site
	for rows.Next() {
		var s Site
		if err := rows.Scan(&s.SiteID, &s.SiteName, &s.SiteAddress, &s.LatDec, &s.LongDec); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const getSite = `-- name: GetSite :one
SELECT site_id, site_name, site_address, lat_dec, long_dec
FROM sites
WHERE site_id = $1
`

func (q *Queries) GetSite(ctx context.Context, siteID string) (Site, error) {
	var s Site
	err := q.db.QueryRow(ctx, getSite, siteID).
		Scan(&s.SiteID, &s.SiteName, &s.SiteAddress, &s.LatDec, &s.LongDec)
	return s, err
}

const createSite = `-- name: CreateSite :one
INSERT INTO sites (site_id, site_name, site_address, lat_dec, long_dec)
VALUES ($1, $2, $3, $4, $5)
RETURNING site_id, site_name, site_address, lat_dec, long_dec
`

type CreateSiteParams struct {
	SiteID      string
	SiteName    *string
	SiteAddress *string
	LatDec      *float64
	LongDec     *float64
}

func (q *Queries) CreateSite(ctx context.Context, arg CreateSiteParams) (Site, error) {
	var s Site
	err := q.db.QueryRow(ctx, createSite,
		arg.SiteID, arg.SiteName, arg.SiteAddress, arg.LatDec, arg.LongDec,
	).Scan(&s.SiteID, &s.SiteName, &s.SiteAddress, &s.LatDec, &s.LongDec)
	return s, err
}

const updateSite = `-- name: UpdateSite :one
UPDATE sites
SET site_name = $2,
    site_address = $3,
    lat_dec = $4,
    long_dec = $5
WHERE site_id = $1
RETURNING site_id, site_name, site_address, lat_dec, long_dec
`

type UpdateSiteParams struct {
	SiteID      string
	SiteName    *string
	SiteAddress *string
	LatDec      *float64
	LongDec     *float64
}

func (q *Queries) UpdateSite(ctx context.Context, arg UpdateSiteParams) (Site, error) {
	var s Site
	err := q.db.QueryRow(ctx, updateSite,
		arg.SiteID, arg.SiteName, arg.SiteAddress, arg.LatDec, arg.LongDec,
	).Scan(&s.SiteID, &s.SiteName, &s.SiteAddress, &s.LatDec, &s.LongDec)
	return s, err
}

const deleteSite = `-- name: DeleteSite :execrows
DELETE FROM sites
WHERE site_id = $1
`

func (q *Queries) DeleteSite(ctx context.Context, siteID string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteSite, siteID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const listLinks = `-- name: ListLinks :many
SELECT link_id, appl_id, client_id, site_from, site_to, freq, freq_pair, bandwidth, model
FROM links
WHERE $1::bigint IS NULL OR client_id = $1
ORDER BY link_id
`

func (q *Queries) ListLinks(ctx context.Context, clientID *int64) ([]Link, error) {
	rows, err := q.db.Query(ctx, listLinks, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(
			&l.LinkID, &l.ApplID, &l.ClientID, &l.SiteFrom, &l.SiteTo,
			&l.Freq, &l.FreqPair, &l.Bandwidth, &l.Model,
		); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

const getLink = `-- name: GetLink :one
SELECT link_id, appl_id, client_id, site_from, site_to, freq, freq_pair, bandwidth, model
FROM links
WHERE link_id = $1
`

func (q *Queries) GetLink(ctx context.Context, linkID int64) (Link, error) {
	var l Link
	err := q.db.QueryRow(ctx, getLink, linkID).Scan(
		&l.LinkID, &l.ApplID, &l.ClientID, &l.SiteFrom, &l.SiteTo,
		&l.Freq, &l.FreqPair, &l.Bandwidth, &l.Model,
	)
	return l, err
}

const createLink = `-- name: CreateLink :one
INSERT INTO links (appl_id, client_id, site_from, site_to, freq, freq_pair, bandwidth, model)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING link_id, appl_id, client_id, site_from, site_to, freq, freq_pair, bandwidth, model
`

type CreateLinkParams struct {
	ApplID    *string
	ClientID  int64
	SiteFrom  string
	SiteTo    string
	Freq      *int32
	FreqPair  *int32
	Bandwidth *int32
	Model     *string
}

func (q *Queries) CreateLink(ctx context.Context, arg CreateLinkParams) (Link, error) {
	var l Link
	err := q.db.QueryRow(ctx, createLink,
		arg.ApplID, arg.ClientID, arg.SiteFrom, arg.SiteTo,
		arg.Freq, arg.FreqPair, arg.Bandwidth, arg.Model,
	).Scan(
		&l.LinkID, &l.ApplID, &l.ClientID, &l.SiteFrom, &l.SiteTo,
		&l.Freq, &l.FreqPair, &l.Bandwidth, &l.Model,
	)
	return l, err
}

const updateLink = `-- name: UpdateLink :one
UPDATE links
SET appl_id = $2,
    client_id = $3,
    site_from = $4,
    site_to = $5,
    freq = $6,
    freq_pair = $7,
    bandwidth = $8,
    model = $9
WHERE link_id = $1
RETURNING link_id, appl_id, client_id, site_from, site_to, freq, freq_pair, bandwidth, model
`

type UpdateLinkParams struct {
	LinkID    int64
	ApplID    *string
	ClientID  int64
	SiteFrom  string
	SiteTo    string
	Freq      *int32
	FreqPair  *int32
	Bandwidth *int32
	Model     *string
}

func (q *Queries) UpdateLink(ctx context.Context, arg UpdateLinkParams) (Link, error) {
	var l Link
	err := q.db.QueryRow(ctx, updateLink,
		arg.LinkID, arg.ApplID, arg.ClientID, arg.SiteFrom, arg.SiteTo,
		arg.Freq, arg.FreqPair, arg.Bandwidth, arg.Model,
	).Scan(
		&l.LinkID, &l.ApplID, &l.ClientID, &l.SiteFrom, &l.SiteTo,
		&l.Freq, &l.FreqPair, &l.Bandwidth, &l.Model,
	)
	return l, err
}

const deleteLink = `-- name: DeleteLink :execrows
DELETE FROM links
WHERE link_id = $1
`

func (q *Queries) DeleteLink(ctx context.Context, linkID int64) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteLink, linkID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const findLinkByNaturalKey = `-- name: FindLinkByNaturalKey :one
SELECT link_id
FROM links
WHERE appl_id IS NOT DISTINCT FROM $1
  AND site_from = $2
  AND site_to = $3
ORDER BY link_id
LIMIT 1
`

type FindLinkByNaturalKeyParams struct {
	ApplID   *string
	SiteFrom string
	SiteTo   string
}

func (q *Queries) FindLinkByNaturalKey(ctx context.Context, arg FindLinkByNaturalKeyParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, findLinkByNaturalKey, arg.ApplID, arg.SiteFrom, arg.SiteTo).Scan(&id)
	return id, err
}

const findLinkByEndpoints = `-- name: FindLinkByEndpoints :one
SELECT link_id
FROM links
WHERE site_from = $1
  AND site_to = $2
ORDER BY link_id
LIMIT 1
`

type FindLinkByEndpointsParams struct {
	SiteFrom string
	SiteTo   string
}

func (q *Queries) FindLinkByEndpoints(ctx context.Context, arg FindLinkByEndpointsParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, findLinkByEndpoints, arg.SiteFrom, arg.SiteTo).Scan(&id)
	return id, err
}

const listMapLinks = `-- name: ListMapLinks :many
SELECT l.link_id, l.appl_id, l.client_id, c.client_name,
       l.site_from, sf.site_name, sf.lat_dec, sf.long_dec,
       l.site_to, st.site_name, st.lat_dec, st.long_dec,
       l.freq, l.bandwidth, l.model
FROM links l
JOIN clients c ON c.client_id = l.client_id
JOIN sites sf ON sf.site_id = l.site_from
JOIN sites st ON st.site_id = l.site_to
WHERE $1::bigint IS NULL OR l.client_id = $1
ORDER BY l.link_id
`

func (q *Queries) ListMapLinks(ctx context.Context, clientID *int64) ([]MapLink, error) {
	rows, err := q.db.Query(ctx, listMapLinks, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MapLink
	for rows.Next() {
		var m MapLink
		if err := rows.Scan(
			&m.LinkID, &m.ApplID, &m.ClientID, &m.ClientName,
			&m.SiteFrom, &m.FromName, &m.FromLat, &m.FromLon,
			&m.SiteTo, &m.ToName, &m.ToLat, &m.ToLon,
			&m.Freq, &m.Bandwidth, &m.Model,
		); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const createImportRun = `-- name: CreateImportRun :one
INSERT INTO import_runs (status, stats)
VALUES ($1, $2)
RETURNING id, status, stats, started_at, completed_at, last_error
`

func (q *Queries) CreateImportRun(ctx context.Context, status string, stats []byte) (ImportRun, error) {
	var r ImportRun
	err := q.db.QueryRow(ctx, createImportRun, status, stats).
		Scan(&r.ID, &r.Status, &r.Stats, &r.StartedAt, &r.CompletedAt, &r.LastError)
	return r, err
}

const finishImportRun = `-- name: FinishImportRun :one
UPDATE import_runs
SET status = $2,
    stats = $3,
    completed_at = now(),
    last_error = $4
WHERE id = $1
RETURNING id, status, stats, started_at, completed_at, last_error
`

type FinishImportRunParams struct {
	ID        string
	Status    string
	Stats     []byte
	LastError *string
}

func (q *Queries) FinishImportRun(ctx context.Context, arg FinishImportRunParams) (ImportRun, error) {
	var r ImportRun
	err := q.db.QueryRow(ctx, finishImportRun, arg.ID, arg.Status, arg.Stats, arg.LastError).
		Scan(&r.ID, &r.Status, &r.Stats, &r.StartedAt, &r.CompletedAt, &r.LastError)
	return r, err
}

const getImportRun = `-- name: GetImportRun :one
SELECT id, status, stats, started_at, completed_at, last_error
FROM import_runs
WHERE id = $1
`

func (q *Queries) GetImportRun(ctx context.Context, id string) (ImportRun, error) {
	var r ImportRun
	err := q.db.QueryRow(ctx, getImportRun, id).
		Scan(&r.ID, &r.Status, &r.Stats, &r.StartedAt, &r.CompletedAt, &r.LastError)
	return r, err
}

const listImportRuns = `-- name: ListImportRuns :many
SELECT id, status, stats, started_at, completed_at, last_error
FROM import_runs
ORDER BY started_at DESC, id DESC
LIMIT $1
`

func (q *Queries) ListImportRuns(ctx context.Context, limit int32) ([]ImportRun, error) {
	rows, err := q.db.Query(ctx, listImportRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ImportRun
	for rows.Next() {
		var r ImportRun
		if err := rows.Scan(&r.ID, &r.Status, &r.Stats, &r.StartedAt, &r.CompletedAt, &r.LastError); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
