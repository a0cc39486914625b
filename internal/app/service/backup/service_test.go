package backup

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nebulahq/nebula/internal/models"
)

func TestRunBackup_NotConfigured(t *testing.T) {
	s := &Service{}

	err := s.runBackup(context.Background(), &models.Settings{})
	assert.ErrorIs(t, err, ErrWebdavNotConfigured)

	err = s.runBackup(context.Background(), &models.Settings{BackupWebdavURL: "https://dav.example.com"})
	assert.ErrorIs(t, err, ErrWebdavNotConfigured, "username is required too")
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "https://dav.example.com/nebula-backups", joinURL("https://dav.example.com/", "nebula-backups"))
	assert.Equal(t, "https://dav.example.com/a/b.json", joinURL("https://dav.example.com", "a", "b.json"))
	// Segments are path-escaped.
	assert.Equal(t, "https://dav.example.com/a%20b.json", joinURL("https://dav.example.com", "a b.json"))
}

func TestBasicAuth(t *testing.T) {
	got := basicAuth("user", "pass")
	assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("user:pass")), got)
}

func TestBackupFileRe(t *testing.T) {
	propfind := `<d:multistatus>
		<d:href>/dav/nebula-backups/nebula-backup.json</d:href>
		<d:href>/dav/nebula-backups/nebula-backup-2026-03-07T09-00-00Z.json</d:href>
		<d:href>/dav/nebula-backups/unrelated.json</d:href>
		<d:href>/dav/nebula-backups/notes.txt</d:href>
	</d:multistatus>`

	names := backupFileRe.FindAllString(propfind, -1)
	assert.Equal(t, []string{"nebula-backup.json", "nebula-backup-2026-03-07T09-00-00Z.json"}, names)
}
