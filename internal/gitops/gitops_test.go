package gitops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/internal/auth/token.go b/internal/auth/token.go
index 1111111..2222222 100644
--- a/internal/auth/token.go
+++ b/internal/auth/token.go
@@ -10,4 +10,5 @@ func issue() {
 	claims := defaults()
-	token := sign(claims)
+	token := sign(claims, key)
+	audit(token)
 	return token
 }
diff --git a/internal/auth/audit.go b/internal/auth/audit.go
new file mode 100644
index 0000000..3333333
--- /dev/null
+++ b/internal/auth/audit.go
@@ -0,0 +1,3 @@
+package auth
+
+func audit(token string) {}
diff --git a/legacy/mac.go b/legacy/mac.go
deleted file mode 100644
index 4444444..0000000
--- a/legacy/mac.go
+++ /dev/null
@@ -1,2 +0,0 @@
-package legacy
-
`

func TestParseFileChanges(t *testing.T) {
	changes := parseFileChanges([]byte(sampleDiff))
	require.Len(t, changes, 3)

	byPath := make(map[string]FileChange)
	for _, c := range changes {
		byPath[c.Path] = c
	}

	modified := byPath["internal/auth/token.go"]
	assert.Equal(t, "modified", modified.Status)
	assert.Equal(t, 2, modified.Additions)
	assert.Equal(t, 1, modified.Deletions)

	added := byPath["internal/auth/audit.go"]
	assert.Equal(t, "added", added.Status)
	assert.Equal(t, 3, added.Additions)
	assert.Equal(t, 0, added.Deletions)

	deleted := byPath["legacy/mac.go"]
	assert.Equal(t, "deleted", deleted.Status)
	assert.Equal(t, 2, deleted.Deletions)
}

func TestScanFileChangesFallback(t *testing.T) {
	// Header lines without hunks; go-diff rejects this, the scanner
	// should still recover file identities.
	raw := "diff --git a/x.go b/x.go\nnew file mode 100644\n+package x\ndiff --git a/y.go b/y.go\ndeleted file mode 100644\n-package y\n"

	changes := scanFileChanges(raw)
	require.Len(t, changes, 2)
	assert.Equal(t, "x.go", changes[0].Path)
	assert.Equal(t, "added", changes[0].Status)
	assert.Equal(t, 1, changes[0].Additions)
	assert.Equal(t, "y.go", changes[1].Path)
	assert.Equal(t, "deleted", changes[1].Status)
	assert.Equal(t, 1, changes[1].Deletions)
}

func TestNewBranchDiffStats(t *testing.T) {
	bd := newBranchDiff([]byte(sampleDiff))

	assert.Equal(t, 3, bd.Stats.FilesChanged)
	assert.Equal(t, 5, bd.Stats.Additions)
	assert.Equal(t, 3, bd.Stats.Deletions)
	assert.Equal(t, len(sampleDiff), bd.Stats.ByteSize)
	assert.Equal(t, sampleDiff, bd.DiffText)
}

func TestSplitDiffByFile(t *testing.T) {
	perFile := SplitDiffByFile(sampleDiff)

	require.Len(t, perFile, 3)
	assert.Contains(t, perFile, "internal/auth/token.go")
	assert.Contains(t, perFile, "internal/auth/audit.go")
	assert.Contains(t, perFile, "legacy/mac.go")

	tokenDiff := perFile["internal/auth/token.go"]
	assert.Contains(t, tokenDiff, "diff --git a/internal/auth/token.go")
	assert.Contains(t, tokenDiff, "+	audit(token)")
	assert.NotContains(t, tokenDiff, "audit.go")
}

func TestSplitDiffByFileEmpty(t *testing.T) {
	assert.Empty(t, SplitDiffByFile(""))
}

func TestNewRejectsNonGitDirectory(t *testing.T) {
	_, err := New(t.TempDir())
	assert.Error(t, err)
}
