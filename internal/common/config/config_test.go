package config

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{
		Host: "db.internal", Port: 6543, User: "guide", Password: "p@ss word",
		Database: "hospital", AppName: "wisefido-guide", ConnTimeout: 3 * time.Second,
	}
	u, err := url.Parse(c.DSN())
	require.NoError(t, err)

	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.internal:6543", u.Host)
	assert.Equal(t, "/hospital", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss word", pw)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "3", u.Query().Get("connect_timeout"))
	assert.Equal(t, "wisefido-guide", u.Query().Get("application_name"))
}

func TestDatabaseConfig_Validate(t *testing.T) {
	assert.NoError(t, (&DatabaseConfig{Host: "h", Port: 5432, Database: "d"}).Validate())
	assert.Error(t, (&DatabaseConfig{Port: 5432, Database: "d"}).Validate())
	assert.Error(t, (&DatabaseConfig{Host: "h", Port: 0, Database: "d"}).Validate())
}

func TestMQTTConfig_Validate(t *testing.T) {
	assert.NoError(t, (&MQTTConfig{Broker: "tcp://b:1883", QoS: 2}).Validate())
	assert.Error(t, (&MQTTConfig{Broker: "tcp://b:1883", QoS: 3}).Validate())
	assert.Error(t, (&MQTTConfig{QoS: 1}).Validate())
}
