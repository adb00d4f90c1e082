package main

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/Returtless/http-server/model"
	"github.com/Returtless/http-server/server"
)

func registerHandlers(srv *server.Server) {

	srv.AddHandler("GET", "/", model.HandlerFunc(handleIndex))
	srv.AddHandler("GET", "/messages", model.HandlerFunc(handleListMessages))
	srv.AddHandler("POST", "/messages", model.HandlerFunc(handlePostMessage))
}

func handleIndex(req *model.Request, out *bufio.Writer) error {
	return writeResponse(out, "200 OK", "text/plain; charset=utf-8", "http-server is up\n")
}

// handleListMessages echoes the query parameters, one name=value per line.
func handleListMessages(req *model.Request, out *bufio.Writer) error {
	return writeResponse(out, "200 OK", "text/plain; charset=utf-8", formatParams(req.QueryParams()))
}

// handlePostMessage echoes the form body; a request without one is rejected.
func handlePostMessage(req *model.Request, out *bufio.Writer) error {

	params := req.PostParams()
	if len(params) == 0 {
		return writeResponse(out, "400 Bad Request", "text/plain; charset=utf-8", "form body required\n")
	}

	return writeResponse(out, "201 Created", "text/plain; charset=utf-8", formatParams(params))
}

func formatParams(params []model.Param) string {

	var sb strings.Builder
	for _, p := range params {
		sb.WriteString(p.Name)
		sb.WriteByte('=')
		sb.WriteString(p.Value)
		sb.WriteByte('\n')
	}

	return sb.String()
}

func writeResponse(out *bufio.Writer, status string, contentType string, body string) error {

	out.WriteString("HTTP/1.1 " + status + "\r\n")
	out.WriteString("Content-Type: " + contentType + "\r\n")
	out.WriteString("Content-Length: " + strconv.Itoa(len(body)) + "\r\n")
	out.WriteString("Connection: close\r\n")
	out.WriteString("\r\n")
	out.WriteString(body)

	return out.Flush()
}
