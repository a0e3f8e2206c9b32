// Package ldapserver implements a minimal LDAP v3 server over this
// directory: anonymous or simple BIND, and SEARCH against the user entries
// directory.Service exposes. The protocol handling mirrors the reference
// implementation's dispatch loop (connect, read one LDAPMessage, switch on
// its protocolOp, reply, repeat); the BER encode/decode beneath it is
// self-authored, since no concrete codec survived into the retrieved source.
package ldapserver

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"

	"github.com/nextdomen/mextdomen/internal/directory"
	"github.com/nextdomen/mextdomen/internal/ldapproto"
	"github.com/nextdomen/mextdomen/internal/models"
)

// Result codes this server can return, RFC 4511 §4.1.9.
const (
	ResultSuccess            = 0
	ResultOperationsError    = 1
	ResultUnavailable        = 12
	ResultNoSuchObject       = 32
	ResultInvalidCredentials = 49
)

// Config configures the listener.
type Config struct {
	ListenAddr string
	// CertFile/KeyFile enable LDAPS when both are set. Plain LDAP otherwise.
	CertFile string
	KeyFile  string
}

// Server answers LDAP connections against a directory.Service.
type Server struct {
	dir    *directory.Service
	domain *models.Domain
	logger *zap.Logger
	cfg    Config
}

// New constructs a Server. domain supplies the base DN new entries are
// rendered under; callers typically pass the directory's first domain.
func New(cfg Config, dir *directory.Service, domain *models.Domain, logger *zap.Logger) *Server {
	return &Server{dir: dir, domain: domain, logger: logger.Named("ldap"), cfg: cfg}
}

// ListenAndServe accepts connections on cfg.ListenAddr until ctx is
// cancelled, handling each on its own goroutine.
func (s *Server) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("ldapserver: failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}

	if s.cfg.CertFile != "" && s.cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(s.cfg.CertFile, s.cfg.KeyFile)
		if err != nil {
			return fmt.Errorf("ldapserver: failed to load TLS certificate: %w", err)
		}
		lis = tls.NewListener(lis, &tls.Config{Certificates: []tls.Certificate{cert}})
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("ldap server shutting down")
		lis.Close()
	}()

	s.logger.Info("ldap server listening", zap.String("addr", s.cfg.ListenAddr))

	for {
		conn, err := lis.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("ldapserver: accept error: %w", err)
			}
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	logger := s.logger.With(zap.String("remote", remote))

	r := bufio.NewReader(conn)
	for {
		msg, err := ldapproto.ReadElement(r)
		if err != nil {
			return
		}
		if msg.Tag != ldapproto.TagSequence || len(msg.Children) < 2 {
			logger.Warn("malformed LDAPMessage, closing connection")
			return
		}

		messageID := msg.Children[0].Int()
		op := msg.Children[1]

		var reply ldapproto.Element
		switch op.Tag {
		case ldapproto.AppBindRequest:
			reply = s.handleBind(op, logger)
		case ldapproto.AppSearchRequest:
			for _, entry := range s.handleSearch(op, logger) {
				writeMessage(conn, messageID, entry)
			}
			reply = ldapproto.Application(ldapproto.AppSearchResultDone,
				ldapproto.Enumerated(ResultSuccess),
				ldapproto.OctetStringFromString(""),
				ldapproto.OctetStringFromString(""))
		case ldapproto.AppUnbindRequest:
			return
		default:
			logger.Warn("unsupported protocolOp", zap.Int("tag", op.Tag))
			reply = ldapproto.Application(ldapproto.AppSearchResultDone,
				ldapproto.Enumerated(ResultUnavailable),
				ldapproto.OctetStringFromString(""),
				ldapproto.OctetStringFromString(""))
		}

		if err := writeMessage(conn, messageID, reply); err != nil {
			return
		}
	}
}

func writeMessage(w net.Conn, messageID int64, op ldapproto.Element) error {
	msg := ldapproto.Sequence(ldapproto.Integer(messageID), op)
	_, err := w.Write(ldapproto.Encode(msg))
	return err
}

// handleBind resolves a simple BIND request. An empty DN is treated as an
// anonymous bind and always succeeds. A non-empty DN must name a known user
// (by the CN= component of its DN) whose password hash verifies against the
// supplied credentials.
func (s *Server) handleBind(op ldapproto.Element, logger *zap.Logger) ldapproto.Element {
	dn := op.Child(1).Str()
	password := op.Child(2).Str()

	if dn == "" {
		return bindResponse(ResultSuccess, "")
	}

	username := usernameFromDN(dn)
	if username == "" {
		return bindResponse(ResultInvalidCredentials, "")
	}

	user, err := s.dir.FindUserByUsername(username)
	if err != nil {
		logger.Error("bind: lookup failed", zap.Error(err))
		return bindResponse(ResultOperationsError, "")
	}
	if user == nil || !user.Enabled {
		return bindResponse(ResultInvalidCredentials, "")
	}
	if ok, err := user.PasswordHash.Verify(password); err != nil || !ok {
		return bindResponse(ResultInvalidCredentials, "")
	}

	return bindResponse(ResultSuccess, "")
}

func bindResponse(resultCode int, diagnostic string) ldapproto.Element {
	return ldapproto.Application(ldapproto.AppBindResponse,
		ldapproto.Enumerated(int64(resultCode)),
		ldapproto.OctetStringFromString(""),
		ldapproto.OctetStringFromString(diagnostic))
}

// usernameFromDN extracts the value of a DN's leading CN= component, e.g.
// "CN=jdoe,DC=corp,DC=example,DC=test" -> "jdoe".
func usernameFromDN(dn string) string {
	first := strings.SplitN(dn, ",", 2)[0]
	if !strings.HasPrefix(strings.ToUpper(first), "CN=") {
		return ""
	}
	return first[3:]
}

// handleSearch evaluates a SEARCH request's filter against every user entry
// and returns the matching SearchResultEntry elements. Scope is accepted but
// not applied narrowly: every principal in the directory is a candidate,
// matching the reference dispatch loop's own simplification.
func (s *Server) handleSearch(op ldapproto.Element, logger *zap.Logger) []ldapproto.Element {
	filterText := reconstructFilter(op.Child(6))
	filter, err := ldapproto.Parse(filterText)
	if err != nil {
		logger.Warn("search: unparsable filter, matching nothing", zap.String("filter", filterText), zap.Error(err))
		return nil
	}

	users, err := s.dir.GetAllUsers()
	if err != nil {
		logger.Error("search: failed to list users", zap.Error(err))
		return nil
	}

	var results []ldapproto.Element
	for i := range users {
		user := users[i]
		dn := directory.GenerateUserDN(&user, s.domain)
		attrs, err := user.ToLDAPEntry(dn, s.dir)
		if err != nil {
			logger.Warn("search: failed to build entry", zap.String("dn", dn), zap.Error(err))
			continue
		}
		if !filter.Matches(attrs) {
			continue
		}
		results = append(results, searchResultEntry(dn, attrs))
	}
	return results
}

func searchResultEntry(dn string, attrs map[string][]string) ldapproto.Element {
	var attrElems []ldapproto.Element
	for name, values := range attrs {
		valElems := make([]ldapproto.Element, len(values))
		for i, v := range values {
			valElems[i] = ldapproto.OctetStringFromString(v)
		}
		attrElems = append(attrElems, ldapproto.Sequence(
			ldapproto.OctetStringFromString(name),
			ldapproto.Set(valElems...),
		))
	}
	return ldapproto.Application(ldapproto.AppSearchResultEntry,
		ldapproto.OctetStringFromString(dn),
		ldapproto.Sequence(attrElems...),
	)
}

// reconstructFilter renders a decoded SearchRequest filter element back into
// the RFC 4515 string form ldapproto.Parse consumes. Clients of this server
// send the filter as BER directly (the SearchRequest's filter field), so this
// rebuilds the textual form the rest of this package operates on rather than
// maintaining a second, BER-native filter evaluator.
func reconstructFilter(el ldapproto.Element) string {
	switch el.Tag {
	case 0: // and
		return wrapJoined("&", el.Children)
	case 1: // or
		return wrapJoined("|", el.Children)
	case 2: // not
		if len(el.Children) == 0 {
			return "(&)"
		}
		return "(!" + reconstructFilter(el.Children[0]) + ")"
	case 3: // equalityMatch
		return fmt.Sprintf("(%s=%s)", el.Child(0).Str(), el.Child(1).Str())
	case 5: // greaterOrEqual
		return fmt.Sprintf("(%s>=%s)", el.Child(0).Str(), el.Child(1).Str())
	case 6: // lessOrEqual
		return fmt.Sprintf("(%s<=%s)", el.Child(0).Str(), el.Child(1).Str())
	case 7: // present
		return fmt.Sprintf("(%s=*)", el.Str())
	case 8: // approxMatch
		return fmt.Sprintf("(%s~=%s)", el.Child(0).Str(), el.Child(1).Str())
	default:
		return "(objectClass=*)"
	}
}

func wrapJoined(op string, children []ldapproto.Element) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(op)
	for _, c := range children {
		b.WriteString(reconstructFilter(c))
	}
	b.WriteByte(')')
	return b.String()
}
