// Package replicatest runs an in-process fake replica for client and agent
// tests. It speaks just enough of the CBOR envelope protocol to accept
// update calls, keep a real counter per target method, and answer
// read_state polls with certificates carrying the candid-encoded reply.
//
// The request-id hashing here is an independent reimplementation on
// purpose: agreement between agent and fake is itself under test.
package replicatest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/saurabh-kaul-yral/onboarding-counter/internal/candid"
)

const (
	MethodGet       = "call_get"
	MethodIncrement = "call_increment"
	MethodDecrement = "call_decrement"
)

// Reject configures an asynchronous replica-level rejection.
type Reject struct {
	Code    uint64
	Message string
}

// Replica is the fake. All knobs are safe for use from the test goroutine
// while the server is running.
type Replica struct {
	mu           sync.Mutex
	counter      uint64
	results      map[string][]byte
	pending      map[string]int
	statusCalls  int
	callsServed  []string
	pollsBefore  int
	failNextMsg  string
	failNextSet  bool
	rejectNext   *Reject
	mangleNext   bool
	lastArg      []byte
	rootKey      []byte
	rejections   map[string]Reject
}

// New builds a fake with a root key, so trust bootstrap succeeds against it.
func New() *Replica {
	return &Replica{
		results:    make(map[string][]byte),
		pending:    make(map[string]int),
		rejections: make(map[string]Reject),
		rootKey:    []byte("replicatest-root-key-not-a-real-key"),
	}
}

// Serve starts an httptest server; the caller owns its lifetime.
func (r *Replica) Serve() *httptest.Server {
	return httptest.NewServer(r.Handler())
}

func (r *Replica) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/status", r.handleStatus)
	mux.HandleFunc("/api/v2/", r.handleCanister)
	return mux
}

// StatusCalls reports how many trust-bootstrap/status round trips happened.
func (r *Replica) StatusCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusCalls
}

// Counter returns the authoritative value.
func (r *Replica) Counter() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counter
}

// SetCounter seeds the authoritative value.
func (r *Replica) SetCounter(v uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter = v
}

// MethodsServed lists update methods in arrival order.
func (r *Replica) MethodsServed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.callsServed))
	copy(out, r.callsServed)
	return out
}

// LastArg returns the raw candid argument of the most recent call.
func (r *Replica) LastArg() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastArg
}

// FailNextWith makes the next call return the Err arm with msg.
func (r *Replica) FailNextWith(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failNextMsg = msg
	r.failNextSet = true
}

// RejectNext makes the next call terminate with a replica-level rejection.
func (r *Replica) RejectNext(code uint64, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejectNext = &Reject{Code: code, Message: msg}
}

// MangleNextReply truncates the next reply blob so it cannot decode.
func (r *Replica) MangleNextReply() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mangleNext = true
}

// RespondProcessing makes each request report "processing" for the first n
// read_state polls, exercising the wait loop.
func (r *Replica) RespondProcessing(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pollsBefore = n
}

func (r *Replica) handleStatus(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	r.statusCalls++
	rootKey := r.rootKey
	r.mu.Unlock()
	writeCBOR(w, map[string]any{
		"replica_health_status": "healthy",
		"root_key":              rootKey,
	})
}

type wireContent struct {
	RequestType   string     `cbor:"request_type"`
	Sender        []byte     `cbor:"sender"`
	Nonce         []byte     `cbor:"nonce"`
	IngressExpiry uint64     `cbor:"ingress_expiry"`
	CanisterID    []byte     `cbor:"canister_id"`
	MethodName    string     `cbor:"method_name"`
	Arg           []byte     `cbor:"arg"`
	Paths         [][][]byte `cbor:"paths"`
}

type wireEnvelope struct {
	Content wireContent `cbor:"content"`
}

func (r *Replica) handleCanister(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var env wireEnvelope
	if err := cbor.Unmarshal(body, &env); err != nil {
		http.Error(w, "bad envelope: "+err.Error(), http.StatusBadRequest)
		return
	}
	switch {
	case strings.HasSuffix(req.URL.Path, "/call"):
		r.handleCall(w, env.Content)
	case strings.HasSuffix(req.URL.Path, "/read_state"):
		r.handleReadState(w, env.Content)
	default:
		http.NotFound(w, req)
	}
}

func (r *Replica) handleCall(w http.ResponseWriter, content wireContent) {
	rid := callRequestID(content)
	key := hex.EncodeToString(rid[:])

	r.mu.Lock()
	defer r.mu.Unlock()
	r.callsServed = append(r.callsServed, content.MethodName)
	r.lastArg = content.Arg

	if r.rejectNext != nil {
		r.rejections[key] = *r.rejectNext
		r.rejectNext = nil
		r.pending[key] = r.pollsBefore
		w.WriteHeader(http.StatusAccepted)
		return
	}

	var reply []byte
	switch {
	case r.failNextSet:
		reply = candid.EncodeErrResult(r.failNextMsg)
		r.failNextSet = false
	case content.MethodName == MethodGet:
		reply = candid.EncodeOkResult(r.counter)
	case content.MethodName == MethodIncrement:
		r.counter++
		reply = candid.EncodeOkResult(r.counter)
	case content.MethodName == MethodDecrement:
		if r.counter == 0 {
			reply = candid.EncodeErrResult("counter cannot go below zero")
		} else {
			r.counter--
			reply = candid.EncodeOkResult(r.counter)
		}
	default:
		reply = candid.EncodeErrResult("no such method: " + content.MethodName)
	}
	if r.mangleNext {
		reply = reply[:len(reply)/2]
		r.mangleNext = false
	}
	r.results[key] = reply
	r.pending[key] = r.pollsBefore
	w.WriteHeader(http.StatusAccepted)
}

func (r *Replica) handleReadState(w http.ResponseWriter, content wireContent) {
	if len(content.Paths) == 0 || len(content.Paths[0]) < 2 {
		http.Error(w, "missing request_status path", http.StatusBadRequest)
		return
	}
	rid := content.Paths[0][1]
	key := hex.EncodeToString(rid)

	r.mu.Lock()
	defer r.mu.Unlock()

	if n, ok := r.pending[key]; ok && n > 0 {
		r.pending[key] = n - 1
		writeCertificate(w, statusTree(rid, "processing", nil))
		return
	}
	if rej, ok := r.rejections[key]; ok {
		delete(r.rejections, key)
		writeCertificate(w, rejectTree(rid, rej))
		return
	}
	reply, ok := r.results[key]
	if !ok {
		// Unknown request: absent from the state tree, caller keeps polling.
		writeCertificate(w, emptyTree())
		return
	}
	writeCertificate(w, repliedTree(rid, reply))
}

// --- state tree construction ---

func leaf(b []byte) []any           { return []any{uint64(3), b} }
func labeled(l []byte, s any) []any { return []any{uint64(2), l, s} }
func fork(l, r any) []any           { return []any{uint64(1), l, r} }
func emptyTree() []any              { return []any{uint64(0)} }

func statusTree(rid []byte, status string, extra any) []any {
	inner := any(labeled([]byte("status"), leaf([]byte(status))))
	if extra != nil {
		inner = fork(inner, extra)
	}
	return labeled([]byte("request_status"), labeled(rid, inner))
}

func repliedTree(rid, reply []byte) []any {
	return statusTree(rid, "replied", labeled([]byte("reply"), leaf(reply)))
}

func rejectTree(rid []byte, rej Reject) []any {
	detail := fork(
		labeled([]byte("reject_code"), leaf(ulebBytes(rej.Code))),
		labeled([]byte("reject_message"), leaf([]byte(rej.Message))),
	)
	return statusTree(rid, "rejected", detail)
}

func ulebBytes(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func writeCertificate(w http.ResponseWriter, tree []any) {
	cert, err := cbor.Marshal(map[string]any{
		"tree":      tree,
		"signature": []byte("replicatest-signature"),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeCBOR(w, map[string]any{"certificate": cert})
}

func writeCBOR(w http.ResponseWriter, v any) {
	body, err := cbor.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/cbor")
	_, _ = w.Write(body)
}

// --- request-id hashing (independent of internal/agent) ---

func callRequestID(c wireContent) [sha256.Size]byte {
	entries := map[string][sha256.Size]byte{
		"request_type":   sha256.Sum256([]byte(c.RequestType)),
		"sender":         sha256.Sum256(c.Sender),
		"ingress_expiry": sha256.Sum256(ulebBytes(c.IngressExpiry)),
		"canister_id":    sha256.Sum256(c.CanisterID),
		"method_name":    sha256.Sum256([]byte(c.MethodName)),
		"arg":            sha256.Sum256(c.Arg),
	}
	if len(c.Nonce) > 0 {
		entries["nonce"] = sha256.Sum256(c.Nonce)
	}
	rows := make([]string, 0, len(entries))
	for k, v := range entries {
		kh := sha256.Sum256([]byte(k))
		rows = append(rows, string(kh[:])+string(v[:]))
	}
	sort.Strings(rows)
	return sha256.Sum256([]byte(strings.Join(rows, "")))
}
