package store

const (
	createSchema = `
CREATE TABLE IF NOT EXISTS heatmap_activities (
	client_id INTEGER NOT NULL,
	id BIGINT NOT NULL,
	type_code INTEGER NOT NULL DEFAULT -1,
	start_date TIMESTAMPTZ,
	name TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL,
	skipped BOOLEAN NOT NULL DEFAULT false,
	PRIMARY KEY (client_id, id)
);
CREATE TABLE IF NOT EXISTS heatmap_tokens (
	client_id INTEGER PRIMARY KEY,
	access_token TEXT NOT NULL,
	refresh_token TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);
`

	selectActivityList = `
SELECT id, type_code, start_date, name
FROM heatmap_activities
WHERE client_id = $1
ORDER BY position ASC
`

	upsertActivityQuery = `
INSERT INTO heatmap_activities (
	client_id,
	id,
	type_code,
	start_date,
	name,
	position
) VALUES (
	$1,
	$2,
	$3,
	$4,
	$5,
	$6
) ON CONFLICT (client_id, id) DO UPDATE
SET
	type_code = EXCLUDED.type_code,
	start_date = COALESCE(EXCLUDED.start_date, heatmap_activities.start_date),
	name = EXCLUDED.name,
	position = EXCLUDED.position
`

	markSkippedQuery = `
UPDATE heatmap_activities
SET skipped = (id = ANY($2::bigint[]))
WHERE client_id = $1
`

	selectTokensQuery = `
SELECT access_token, refresh_token, expires_at
FROM heatmap_tokens
WHERE client_id = $1
`

	upsertTokensQuery = `
INSERT INTO heatmap_tokens (
	client_id,
	access_token,
	refresh_token,
	expires_at
) VALUES (
	$1,
	$2,
	$3,
	$4
) ON CONFLICT (client_id) DO UPDATE
SET
	access_token = EXCLUDED.access_token,
	refresh_token = EXCLUDED.refresh_token,
	expires_at = EXCLUDED.expires_at
`
)
