package job

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FileJob(t *testing.T) {
	j, err := New(Params{
		ID:          "3",
		Name:        "  Nightly Reports ",
		Kind:        "FILE",
		Recurrence:  "Daily",
		Enabled:     true,
		Source:      map[string]any{"source_path": "/srv/reports"},
		Destination: "/backup/reports",
	})
	require.NoError(t, err)

	assert.Equal(t, "nightly reports", j.Name)
	assert.Equal(t, KindFile, j.Kind)
	assert.Equal(t, Daily, j.Recurrence)

	src, err := LoadAs[*FileConfig](j)
	require.NoError(t, err)
	assert.Equal(t, "/srv/reports", src.SourcePath)
}

func TestNew_LegacyMSSQLKind(t *testing.T) {
	j, err := New(Params{
		Name:        "erp",
		Kind:        "mssql",
		Recurrence:  "weekly",
		Source:      map[string]any{"server": "db01", "database": "erp", "username": "sa", "password": "secret"},
		Destination: `D:\backups`,
	})
	require.NoError(t, err)
	assert.Equal(t, KindDatabase, j.Kind)

	src, err := LoadAs[*DatabaseConfig](j)
	require.NoError(t, err)
	assert.Equal(t, "db01", src.Server)
	assert.Equal(t, "secret", src.Password)
}

func TestNew_Rejects(t *testing.T) {
	valid := Params{
		Name:        "docs",
		Kind:        "file",
		Recurrence:  "monthly",
		Source:      map[string]any{"source_path": "/docs"},
		Destination: "/backup/docs",
	}

	tests := []struct {
		name   string
		mutate func(p *Params)
		field  string
	}{
		{"unknown kind", func(p *Params) { p.Kind = "ftp" }, "kind"},
		{"unknown recurrence", func(p *Params) { p.Recurrence = "hourly" }, "recurrence"},
		{"empty name", func(p *Params) { p.Name = " " }, "name"},
		{"empty destination", func(p *Params) { p.Destination = "" }, "destination"},
		{"missing source path", func(p *Params) { p.Source = nil }, "source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)

			_, err := New(p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestLoadAs_WrongType(t *testing.T) {
	j := Job{Name: "x", Kind: KindFile, Source: &FileConfig{SourcePath: "/x"}}
	_, err := LoadAs[*S3Config](j)
	assert.Error(t, err)
}

func TestConfigFromMap_UnknownKind(t *testing.T) {
	_, err := ConfigFromMap(Kind("tape"), map[string]any{})
	assert.Error(t, err)
}

func TestJobString(t *testing.T) {
	j := Job{ID: "7", Name: "docs", Kind: KindFile, Recurrence: Daily, Enabled: true}
	assert.Equal(t, "7\tfile    \tdaily  \tA\t'docs'", j.String())

	j.Enabled = false
	assert.Contains(t, j.String(), "\t-\t")
}

func TestDatabaseConfig_ResolveMySQLDSN(t *testing.T) {
	c := &DatabaseConfig{
		Engine:           EngineMySQL,
		ConnectionString: "backup:s3cret@tcp(db.internal:3307)/shop",
	}
	require.NoError(t, c.Validate())

	r, err := c.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "db.internal", r.Server)
	assert.Equal(t, 3307, r.Port)
	assert.Equal(t, "shop", r.Database)
	assert.Equal(t, "backup", r.Username)
	assert.Equal(t, "s3cret", r.Password)
	assert.Empty(t, r.ConnectionString)
}

func TestDatabaseConfig_ResolveDefaults(t *testing.T) {
	c := &DatabaseConfig{Engine: EngineMySQL, Server: "localhost", Database: "shop"}
	r, err := c.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 3306, r.Port)

	c = &DatabaseConfig{Server: "sql01", Database: "erp"}
	r, err = c.Resolve()
	require.NoError(t, err)
	assert.Equal(t, EngineMSSQL, r.Engine)
	assert.Zero(t, r.Port)
}

func TestDatabaseConfig_Validate(t *testing.T) {
	assert.Error(t, (&DatabaseConfig{Database: "erp"}).Validate())
	assert.Error(t, (&DatabaseConfig{Server: "sql01"}).Validate())
	assert.Error(t, (&DatabaseConfig{Engine: "oracle", Server: "a", Database: "b"}).Validate())
	assert.Error(t, (&DatabaseConfig{Server: "a", Database: "b", ConnectionString: "u@/b"}).Validate())
	assert.Error(t, (&DatabaseConfig{Engine: EngineMySQL, ConnectionString: "not a dsn"}).Validate())
}

func TestS3Config_Validate(t *testing.T) {
	assert.NoError(t, (&S3Config{Bucket: "b"}).Validate())
	assert.Error(t, (&S3Config{}).Validate())
	assert.Error(t, (&S3Config{Bucket: "b", AccessKeyID: "AKIA"}).Validate())
}
