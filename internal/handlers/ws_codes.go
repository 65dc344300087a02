// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the realtime handler.
// These provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Auth cookie missing, invalid or expired.
	InvalidTableError     = 3002 // Unknown table in the subscription query.
	InvalidFilterError    = 3003 // Filter column is not filterable on the requested table.
	InvalidLobbyIDError   = 3004 // Lobby filter names a lobby that does not exist.
)
