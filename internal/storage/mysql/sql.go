package mysql

const insertSearchSQL = `
INSERT INTO search_audit
  (session_id, location_key, start_date, end_date, page, filters, outcome, total, returned, error_code, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Newest first; matches idx_search_audit_session (session_id, created_at, id).
const recentSearchesSQL = `
SELECT id, session_id, location_key, start_date, end_date, page, filters, outcome, total, returned, error_code, created_at
FROM search_audit
WHERE session_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`
