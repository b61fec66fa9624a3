package server

import (
	"github.com/gin-gonic/gin"
)

type Server struct {
	Addr   string
	Engine *gin.Engine
}

func NewServer(addr string) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		Addr:   addr,
		Engine: engine,
	}
}

func (s *Server) Run() error {
	return s.Engine.Run(s.Addr)
}
