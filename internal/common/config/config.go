package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// DatabaseConfig 患者数据库（预约、排队、档案）连接参数
type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	MaxConns    int
	MaxIdle     int
	ConnTimeout time.Duration // 0 表示使用默认 5s
	AppName     string        // 写入 pg_stat_activity.application_name
}

// RedisConfig 缓存与事件流所用 Redis
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

// MQTTConfig NFC 扫描上报所用 MQTT broker
type MQTTConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	ConnectTimeout time.Duration
}

// DSN lib/pq URL 形式连接串，用户名密码做转义
func (c *DatabaseConfig) DSN() string {
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	if c.SSLMode == "" {
		q.Set("sslmode", "disable")
	}
	timeout := c.ConnTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	q.Set("connect_timeout", strconv.Itoa(int(timeout.Seconds())))
	if c.AppName != "" {
		q.Set("application_name", c.AppName)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Validate 连接参数是否完整
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" || c.Database == "" {
		return fmt.Errorf("database host and name are required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid database port %d", c.Port)
	}
	return nil
}

// Validate QoS 只允许 0/1/2
func (c *MQTTConfig) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("invalid MQTT_QOS %d", c.QoS)
	}
	return nil
}
