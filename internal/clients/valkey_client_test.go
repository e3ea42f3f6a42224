package clients

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// respServer speaks enough RESP3 for the valkey-go handshake and fails the
// first GET and SET of every key with a transient server error.
type respServer struct {
	ln    net.Listener
	mu    sync.Mutex
	data  map[string]string
	calls map[string]int
}

func newRESPServer(t *testing.T) *respServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := &respServer{ln: ln, data: map[string]string{}, calls: map[string]int{}}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *respServer) addr() string { return s.ln.Addr().String() }

func (s *respServer) count(cmd, key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[cmd+" "+key]
}

func (s *respServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *respServer) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		if _, err := io.WriteString(conn, s.reply(args)); err != nil {
			return
		}
	}
}

func (s *respServer) reply(args []string) string {
	if len(args) == 0 {
		return "-ERR empty command\r\n"
	}
	switch strings.ToUpper(args[0]) {
	case "HELLO":
		return "%7\r\n" +
			"+server\r\n+valkey\r\n" +
			"+version\r\n+7.2.4\r\n" +
			"+proto\r\n:3\r\n" +
			"+id\r\n:1\r\n" +
			"+mode\r\n+standalone\r\n" +
			"+role\r\n+master\r\n" +
			"+modules\r\n*0\r\n"
	case "CLUSTER":
		return "-ERR This instance has cluster support disabled\r\n"
	case "PING":
		return "+PONG\r\n"
	case "GET", "SET":
		if len(args) < 2 {
			return "-ERR wrong number of arguments\r\n"
		}
		cmd, key := strings.ToUpper(args[0]), args[1]
		s.mu.Lock()
		defer s.mu.Unlock()
		s.calls[cmd+" "+key]++
		if s.calls[cmd+" "+key] == 1 {
			return "-ERR transient\r\n"
		}
		if cmd == "SET" {
			if len(args) < 3 {
				return "-ERR wrong number of arguments\r\n"
			}
			s.data[key] = args[2]
			return "+OK\r\n"
		}
		v, ok := s.data[key]
		if !ok {
			return "_\r\n"
		}
		return fmt.Sprintf("$%d\r\n%s\r\n", len(v), v)
	default:
		return "+OK\r\n"
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "*") {
		return strings.Fields(line), nil
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		head, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimRight(head, "\r\n")[1:])
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func TestValkeyClientRetriesServerErrors(t *testing.T) {
	srv := newRESPServer(t)
	vc, err := InitValkey(ValkeyOptions{Address: srv.addr()})
	if err != nil {
		t.Fatal(err)
	}
	defer vc.Close()

	ctx := context.Background()
	if err := vc.StoreLogits(ctx, "sentiment:abc", []float64{0.25, 0.75}); err != nil {
		t.Fatalf("StoreLogits: %v", err)
	}
	got, ok, err := vc.GetLogits(ctx, "sentiment:abc")
	if err != nil || !ok {
		t.Fatalf("GetLogits = %v, %v, %v", got, ok, err)
	}
	if len(got) != 2 || got[0] != 0.25 || got[1] != 0.75 {
		t.Errorf("GetLogits = %v", got)
	}
	if n := srv.count("SET", "sentiment:abc"); n != 2 {
		t.Errorf("SET attempts = %d, want 2", n)
	}
	if n := srv.count("GET", "sentiment:abc"); n != 2 {
		t.Errorf("GET attempts = %d, want 2", n)
	}
}

func TestValkeyClientMissAfterRetry(t *testing.T) {
	srv := newRESPServer(t)
	vc, err := InitValkey(ValkeyOptions{Address: srv.addr()})
	if err != nil {
		t.Fatal(err)
	}
	defer vc.Close()

	got, ok, err := vc.GetLogits(context.Background(), "sentiment:missing")
	if err != nil || ok || got != nil {
		t.Errorf("GetLogits = %v, %v, %v, want a clean miss", got, ok, err)
	}
	if n := srv.count("GET", "sentiment:missing"); n != 2 {
		t.Errorf("GET attempts = %d, want 2", n)
	}
}
