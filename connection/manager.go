package connection

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"net/url"
	"sync"
	"zetago/utils"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/go-errors/errors"
)

type Config struct {
	Host        string
	Token       string
	IsSecure    bool
	MaxReferrer int
}

// ConfigFromEndpoint splits an http(s) or ws(s) url into a Config. The path,
// if any, is kept as the token.
func ConfigFromEndpoint(endpoint string) (Config, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return Config{}, errors.WrapPrefix(err, "endpoint "+endpoint, 0)
	}
	if u.Host == "" {
		return Config{}, errors.Errorf("endpoint %q has no host", endpoint)
	}
	token := u.Path
	if len(token) > 0 && token[0] == '/' {
		token = token[1:]
	}
	return Config{
		Host:     u.Host,
		Token:    token,
		IsSecure: u.Scheme == "https" || u.Scheme == "wss",
	}, nil
}

func (p *Config) Hash() string {
	t := fmt.Sprintf("%s://%s/%s", utils.TT(p.IsSecure, "https", "http"), p.Host, p.Token)
	sum := md5.Sum([]byte(t))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func (p *Config) maxClients() int {
	return max(p.MaxReferrer, 1)
}

func (p *Config) GetRpcEndpoint() string {
	return fmt.Sprintf("%s://%s",
		utils.TT(p.IsSecure, "https", "http"),
		p.Host+(utils.TT(p.Token == "", "", "/"+p.Token)),
	)
}

func (p *Config) GetWsEndpoint() string {
	return fmt.Sprintf("%s://%s",
		utils.TT(p.IsSecure, "wss", "ws"),
		p.Host+(utils.TT(p.Token == "", "", "/"+p.Token)),
	)
}

// Manager hands out rpc and websocket clients per configured endpoint, up to
// MaxReferrer clients each (one when unset); beyond that existing clients
// are shared.
type Manager struct {
	mu             sync.Mutex
	configs        map[string]*Config
	rpcConnections map[string][]*rpc.Client
	wsConnections  map[string][]*ws.Client
}

func CreateManager() *Manager {
	return &Manager{
		configs:        make(map[string]*Config),
		rpcConnections: make(map[string][]*rpc.Client),
		wsConnections:  make(map[string][]*ws.Client),
	}
}

func (p *Manager) AddConfig(config Config, id ...string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	connectionId := config.Hash()
	if len(id) > 0 && len(id[0]) > 0 {
		connectionId = id[0]
	}
	if _, exists := p.configs[connectionId]; !exists {
		p.configs[connectionId] = &config
	}
	return connectionId
}

func (p *Manager) getConnectionId(id ...string) string {
	var connectionId string
	if len(id) > 0 && len(id[0]) > 0 {
		connectionId = id[0]
	}
	if _, exists := p.configs[connectionId]; !exists && len(p.configs) > 0 {
		connectionId = utils.RandomElement(utils.MapKeys(p.configs))
	}
	return connectionId
}

func (p *Manager) GetRpc(id ...string) *rpc.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	connectionId := p.getConnectionId(id...)
	config, exists := p.configs[connectionId]
	if !exists {
		return nil
	}
	if len(p.rpcConnections[connectionId]) < config.maxClients() {
		connection := rpc.New(config.GetRpcEndpoint())
		p.rpcConnections[connectionId] = append(p.rpcConnections[connectionId], connection)
		return connection
	}
	return utils.RandomElement(p.rpcConnections[connectionId])
}

func (p *Manager) GetWs(ctx context.Context, id ...string) (*ws.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	connectionId := p.getConnectionId(id...)
	config, exists := p.configs[connectionId]
	if !exists {
		return nil, errors.New("no connection configured")
	}
	if len(p.wsConnections[connectionId]) < config.maxClients() {
		connection, err := ws.Connect(ctx, config.GetWsEndpoint())
		if err != nil {
			return nil, errors.WrapPrefix(err, "websocket "+config.Host, 0)
		}
		p.wsConnections[connectionId] = append(p.wsConnections[connectionId], connection)
		return connection, nil
	}
	return utils.RandomElement(p.wsConnections[connectionId]), nil
}

func (p *Manager) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, connections := range p.wsConnections {
		for _, connection := range connections {
			connection.Close()
		}
		delete(p.wsConnections, id)
	}
	for id, connections := range p.rpcConnections {
		for _, connection := range connections {
			_ = connection.Close()
		}
		delete(p.rpcConnections, id)
	}
}
