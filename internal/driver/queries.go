package driver

// IndexQueries back the lookups below. Memgraph syntax.
var IndexQueries = []string{
	"CREATE INDEX ON :User(uid);",
	"CREATE INDEX ON :Model(timestamp);",
}

const (
	GetUserQuery = `
		MATCH (u:User {uid: $uid})
		RETURN u.uid AS uid, u.name AS name, u.email AS email,
			u.role AS role, u.created_at AS created_at
	`

	// EnsureUserQuery creates the profile on first sight and never overwrites
	// an existing one. created reports whether this call made it.
	EnsureUserQuery = `
		OPTIONAL MATCH (existing:User {uid: $uid})
		WITH existing
		MERGE (u:User {uid: $uid})
		ON CREATE SET u.name = $name,
			u.email = $email,
			u.created_at = $created_at
		RETURN existing IS NULL AS created
	`

	SaveModelQuery = `
		CREATE (m:Model {uuid: $uuid})
		SET m.best_model = $best_model,
			m.user_id = $user_id,
			m.filename = $filename,
			m.timestamp = $timestamp
		RETURN m.uuid AS uuid
	`

	LatestModelQuery = `
		MATCH (m:Model)
		RETURN m.best_model AS best_model, m.user_id AS user_id,
			m.filename AS filename, m.timestamp AS timestamp
		ORDER BY m.timestamp DESC
		LIMIT 1
	`
)
