package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Source 资源来源
type Source interface {
	// Fetch 将名为 name 的文件写入 w，返回写入字节数
	Fetch(ctx context.Context, name string, w io.Writer) (int64, error)
	// Location 返回文件的完整地址，用于日志与错误信息
	Location(name string) string
}

// HTTPSource 通过 HTTP 下载
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPSource 创建 HTTP 来源，baseURL 为空时使用 DefaultBaseURL
func NewHTTPSource(baseURL string) *HTTPSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPSource{BaseURL: baseURL}
}

func (s *HTTPSource) Location(name string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/" + name
}

func (s *HTTPSource) Fetch(ctx context.Context, name string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Location(name), nil)
	if err != nil {
		return 0, err
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("HTTP 状态码 %d", resp.StatusCode)
	}
	return io.Copy(w, resp.Body)
}
