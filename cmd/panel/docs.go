package main

//go:generate swag init -g cmd/panel/main.go -o docs

// @title           Quote Panel API
// @version         0.1.0
// @description     Daily OHLCV ingestion, ingestion ledger and composite factor ranking.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
