package main

//go:generate swag init -g cmd/spielebasar/main.go -o docs

// @title           spielebasar sync API
// @version         0.1.0
// @description     Open referee games sync: scheduler status, manual runs, run history and club visibility.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
