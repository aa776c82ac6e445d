// Package servers 提供HTTP服务器的启动和停止
package servers

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"
)

// HTTPServer HTTP服务器
type HTTPServer struct {
	server *http.Server
}

// NewHTTPServer 创建HTTP服务器
func NewHTTPServer(addr string, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start 启动服务器，阻塞直到服务器关闭
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve 在指定监听器上提供服务
func (s *HTTPServer) Serve(ln net.Listener) error {
	log.Printf("[INFO] 正在启动HTTP服务器，监听地址: %s", ln.Addr())

	if err := s.server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		log.Printf("[ERROR] HTTP服务器错误: %v", err)
		return err
	}
	return nil
}

// Stop 停止服务器，等待进行中的请求完成
func (s *HTTPServer) Stop(ctx context.Context) error {
	log.Printf("[INFO] 正在停止HTTP服务器")
	return s.server.Shutdown(ctx)
}
