// Package docs registers the Swagger specification for the HTTP API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Serial Service API Support"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/serial/ports": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Serial"],
                "summary": "List available serial ports",
                "description": "Enumerate the serial ports currently visible to the system",
                "responses": {
                    "200": {"description": "Ports retrieved successfully"}
                }
            }
        },
        "/serial/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Serial"],
                "summary": "Check whether a port is open",
                "parameters": [
                    {
                        "type": "string",
                        "name": "port",
                        "in": "query",
                        "required": true,
                        "description": "System port name"
                    }
                ],
                "responses": {
                    "200": {"description": "Port status retrieved"},
                    "400": {"description": "Missing port parameter"}
                }
            }
        },
        "/serial/open": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Serial"],
                "summary": "Open a serial port",
                "description": "Open a serial port with the given baud rate and data bits (one stop bit, no parity). Listening is a separate step.",
                "responses": {
                    "201": {"description": "Port opened successfully"},
                    "400": {"description": "Invalid request"},
                    "409": {"description": "Port already open"},
                    "502": {"description": "Serial transport failure"}
                }
            }
        },
        "/serial/open-and-stream": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["text/event-stream"],
                "tags": ["Serial"],
                "summary": "Open a serial port and stream its data",
                "description": "Open the port, start the listener, and stream framed messages as Server-Sent Events (event: serialData)",
                "responses": {
                    "200": {"description": "SSE stream"},
                    "400": {"description": "Invalid request"},
                    "409": {"description": "Port already open"},
                    "502": {"description": "Serial transport failure"}
                }
            }
        },
        "/serial/close": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Serial"],
                "summary": "Close a serial port",
                "responses": {
                    "200": {"description": "Close processed"},
                    "400": {"description": "Invalid request"}
                }
            }
        },
        "/serial/listen": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Serial"],
                "summary": "Start listening on an open port",
                "responses": {
                    "200": {"description": "Listening started"},
                    "400": {"description": "Invalid request"},
                    "404": {"description": "Port not open"}
                }
            }
        },
        "/serial/listen/stop": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Serial"],
                "summary": "Stop listening on a port",
                "responses": {
                    "200": {"description": "Listening stopped"},
                    "400": {"description": "Invalid request"}
                }
            }
        },
        "/serial/stream": {
            "get": {
                "produces": ["text/event-stream"],
                "tags": ["Serial"],
                "summary": "Stream framed serial messages",
                "description": "Subscribe to the broadcast hub and receive framed messages from every listening port as Server-Sent Events",
                "responses": {
                    "200": {"description": "SSE stream"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8090",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "Serial Service API",
	Description:      "Serial port management service with framed message streaming over SSE and WebSocket",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
