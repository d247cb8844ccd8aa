package social

// Session reports the identity of the current viewer.
type Session interface {
	UserID() (string, bool)
}

// StaticSession is a Session with a fixed viewer id. The empty value is anonymous.
type StaticSession string

func (s StaticSession) UserID() (string, bool) { return string(s), s != "" }

// Anonymous is the session of a signed-out viewer.
var Anonymous Session = StaticSession("")

func viewerOf(s Session) (string, bool) {
	if s == nil {
		return "", false
	}
	return s.UserID()
}
