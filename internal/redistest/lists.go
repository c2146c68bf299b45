// Package redistest serves Redis list commands from memory through a client
// hook, so list consumers and writers can be tested without a server.
package redistest

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	redis "github.com/redis/go-redis/v9"
)

// Lists is an in-memory store for RPUSH, LPUSH, BLPOP, LRANGE and DEL.
// Commands it does not know fail with an error. BLPOP never blocks; an
// empty list answers redis.Nil at once.
type Lists struct {
	mu    sync.Mutex
	lists map[string][]string
	fail  error
}

// NewClient returns a client whose commands are answered by a fresh Lists.
// The client never dials.
func NewClient() (*redis.Client, *Lists) {
	l := &Lists{lists: make(map[string][]string)}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	client.AddHook(l)
	return client, l
}

// FailWith makes every following command fail with err; nil restores service.
func (l *Lists) FailWith(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fail = err
}

// Items returns a copy of the list stored under key.
func (l *Lists) Items(key string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lists[key]...)
}

// Push appends values to key directly.
func (l *Lists) Push(key string, values ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lists[key] = append(l.lists[key], values...)
}

func (l *Lists) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, fmt.Errorf("redistest: dial %s not supported", addr)
	}
}

func (l *Lists) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := l.process(cmd)
		if err != nil {
			cmd.SetErr(err)
		}
		return err
	}
}

func (l *Lists) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			if err := l.process(cmd); err != nil {
				cmd.SetErr(err)
				return err
			}
		}
		return nil
	}
}

func (l *Lists) process(cmd redis.Cmder) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return l.fail
	}

	args := cmd.Args()
	str := func(i int) string { return toString(args[i]) }
	name := strings.ToLower(cmd.Name())
	switch name {
	case "rpush", "lpush":
		key := str(1)
		for i := 2; i < len(args); i++ {
			if name == "lpush" {
				l.lists[key] = append([]string{str(i)}, l.lists[key]...)
			} else {
				l.lists[key] = append(l.lists[key], str(i))
			}
		}
		setInt(cmd, int64(len(l.lists[key])))
	case "blpop":
		// keys sit between the command name and the trailing timeout
		for i := 1; i < len(args)-1; i++ {
			key := str(i)
			if items := l.lists[key]; len(items) > 0 {
				l.lists[key] = items[1:]
				if c, ok := cmd.(*redis.StringSliceCmd); ok {
					c.SetVal([]string{key, items[0]})
				}
				return nil
			}
		}
		return redis.Nil
	case "lrange":
		if c, ok := cmd.(*redis.StringSliceCmd); ok {
			c.SetVal(append([]string(nil), l.lists[str(1)]...))
		}
	case "del":
		var n int64
		for i := 1; i < len(args); i++ {
			if _, ok := l.lists[str(i)]; ok {
				delete(l.lists, str(i))
				n++
			}
		}
		setInt(cmd, n)
	case "ping":
		if c, ok := cmd.(*redis.StatusCmd); ok {
			c.SetVal("PONG")
		}
	default:
		return fmt.Errorf("redistest: unsupported command %s", cmd.Name())
	}
	return nil
}

func setInt(cmd redis.Cmder, v int64) {
	if c, ok := cmd.(*redis.IntCmd); ok {
		c.SetVal(v)
	}
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
