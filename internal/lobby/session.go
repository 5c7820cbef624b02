package lobby

// connSession holds per-connection authentication state, matching
// lobby_server.py's {'logged_in', 'user_id', 'username'} dict.
type connSession struct {
	loggedIn bool
	userID   string
	username string
}
