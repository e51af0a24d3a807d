package catalogclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ClientTestSuite struct {
	suite.Suite
	server *httptest.Server
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) TearDownTest() {
	if s.server != nil {
		s.server.Close()
	}
}

func (s *ClientTestSuite) TestDownloadLink() {
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodGet, r.Method)
		s.Equal("/api/products/10/download-link", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"productId": 10, "downloadLink": "https://dl/ebook"}`))
	}))

	client := New(s.server.URL)
	link, err := client.DownloadLink(context.Background(), 10)
	s.Require().NoError(err)
	s.Equal("https://dl/ebook", link)
}

func (s *ClientTestSuite) TestDownloadLink_UnexpectedStatus() {
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	client := New(s.server.URL)
	_, err := client.DownloadLink(context.Background(), 10)
	s.Require().Error(err)
}

func (s *ClientTestSuite) TestDownloadLink_EmptyLink() {
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"productId": 10, "downloadLink": ""}`))
	}))

	client := New(s.server.URL)
	_, err := client.DownloadLink(context.Background(), 10)
	s.Require().Error(err)
}
