// internal/repository/zookeeper/holder.go
//
// Пакет zookeeper — тонкий фасад координационного сервиса кластера:
// перечисление существующих топиков и адресов брокеров для
// административных операций.
package zookeeper

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
	"go.uber.org/zap"

	"github.com/defineus/nakadi/pkg/backoff"
	"github.com/defineus/nakadi/pkg/logger"
)

const (
	topicsPath    = "/brokers/topics"
	brokerIDsPath = "/brokers/ids"
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config описывает подключение к ансамблю ZooKeeper.
type Config struct {
	// Servers — адреса узлов ансамбля.
	Servers []string `mapstructure:"servers"`

	// SessionTimeout — таймаут сессии ZooKeeper.
	SessionTimeout time.Duration `mapstructure:"session_timeout"`

	// ConnectTimeout — сколько ждать установления сессии при старте.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	// Backoff — стратегия ретраев ожидания сессии.
	Backoff backoff.Config `mapstructure:"backoff"`
}

func (c *Config) applyDefaults() {
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 10 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 15 * time.Second
	}
}

func (c Config) validate() error {
	if len(c.Servers) == 0 {
		return fmt.Errorf("zookeeper: servers required")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Holder
// -----------------------------------------------------------------------------

// Holder владеет одной сессией ZooKeeper на процесс.
type Holder struct {
	conn       *zk.Conn
	connString string
	log        *logger.Logger
}

// New устанавливает сессию ZooKeeper и ждёт её готовности с ретраями.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*Holder, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log = log.Named("zookeeper")

	conn, _, err := zk.Connect(cfg.Servers, cfg.SessionTimeout, zk.WithLogInfo(false))
	if err != nil {
		return nil, fmt.Errorf("zookeeper: connect: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	waitSession := func(_ context.Context) error {
		if conn.State() != zk.StateHasSession {
			return fmt.Errorf("zookeeper: no session yet (state %s)", conn.State())
		}
		return nil
	}
	if err := backoff.Execute(waitCtx, cfg.Backoff, log, waitSession); err != nil {
		conn.Close()
		return nil, fmt.Errorf("zookeeper: session not established: %w", err)
	}

	log.Info("zookeeper session established", zap.Strings("servers", cfg.Servers))
	return &Holder{
		conn:       conn,
		connString: strings.Join(cfg.Servers, ","),
		log:        log,
	}, nil
}

// ConnectionString возвращает строку подключения ансамбля.
func (h *Holder) ConnectionString() string { return h.connString }

// Topics перечисляет существующие топики — прямых детей известного
// координационного пути топиков.
func (h *Holder) Topics(_ context.Context) ([]string, error) {
	children, _, err := h.conn.Children(topicsPath)
	if err != nil {
		return nil, fmt.Errorf("zookeeper: list %s: %w", topicsPath, err)
	}
	return children, nil
}

// brokerInfo — регистрация брокера в координации (нужные поля).
type brokerInfo struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// parseBrokerAddr извлекает host:port из JSON-регистрации брокера.
func parseBrokerAddr(data []byte) (string, error) {
	var info brokerInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return "", err
	}
	if info.Host == "" || info.Port == 0 {
		return "", fmt.Errorf("incomplete broker registration: %s", data)
	}
	return info.Host + ":" + strconv.Itoa(info.Port), nil
}

// Brokers возвращает адреса живых брокеров кластера для выделенных
// административных сессий.
func (h *Holder) Brokers(_ context.Context) ([]string, error) {
	ids, _, err := h.conn.Children(brokerIDsPath)
	if err != nil {
		return nil, fmt.Errorf("zookeeper: list %s: %w", brokerIDsPath, err)
	}

	brokers := make([]string, 0, len(ids))
	for _, id := range ids {
		data, _, err := h.conn.Get(brokerIDsPath + "/" + id)
		if err != nil {
			return nil, fmt.Errorf("zookeeper: get broker %s: %w", id, err)
		}
		addr, err := parseBrokerAddr(data)
		if err != nil {
			return nil, fmt.Errorf("zookeeper: decode broker %s: %w", id, err)
		}
		brokers = append(brokers, addr)
	}
	return brokers, nil
}

// Close завершает сессию.
func (h *Holder) Close() error {
	h.conn.Close()
	h.log.Info("zookeeper session closed")
	return nil
}
