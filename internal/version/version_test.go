package version

import (
	"strings"
	"testing"
)

func TestFullIncludesCommit(t *testing.T) {
	if got := Full(); !strings.Contains(got, Commit) || !strings.HasPrefix(got, "leaftok-site ") {
		t.Fatalf("版本信息格式错误: %s", got)
	}
	if !strings.HasSuffix(UserAgent(), Version) {
		t.Fatalf("User-Agent 应包含版本号: %s", UserAgent())
	}
}
