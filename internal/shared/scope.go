package shared

// Scope identifies who is acting and on behalf of which company. Every
// orchestrator command carries an explicit Scope; there is no ambient
// current-company or current-user state anywhere in the core.
type Scope struct {
	CompanyID int64
	ActorID   int64
}
