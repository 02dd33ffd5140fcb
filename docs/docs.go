// Package docs holds the OpenAPI document served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "description": "Reports that the gateway is up, with uptime, VPN status and the number of open terminal sessions.",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "Gateway is healthy", "schema": {"$ref": "#/definitions/models.HealthResponse"}}
                }
            }
        },
        "/ws/ssh": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Upgrades to a websocket that bridges a browser terminal to a remote SSH shell. Frames are JSON objects tagged by \"type\".",
                "tags": ["SSH"],
                "summary": "SSH terminal websocket",
                "parameters": [
                    {"type": "string", "description": "JWT when the Authorization header cannot be set", "name": "token", "in": "query"}
                ],
                "responses": {
                    "101": {"description": "Switching protocols"},
                    "401": {"description": "Unauthorized (JWT)", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "403": {"description": "Origin not allowed"}
                }
            }
        },
        "/api/ssh/sessions": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Lists open websocket terminal sessions and their attached SSH targets.",
                "produces": ["application/json"],
                "tags": ["SSH"],
                "summary": "List terminal sessions",
                "responses": {
                    "200": {"description": "Live sessions", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.SSHSessionInfo"}}},
                    "401": {"description": "Unauthorized (JWT)", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/vpn/connect": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Starts the OpenVPN client with the given config, replacing any running client.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["VPN"],
                "summary": "Connect VPN",
                "parameters": [
                    {"description": "OpenVPN config and optional credentials", "name": "connect_request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.VPNConnectRequest"}}
                ],
                "responses": {
                    "202": {"description": "Client started", "schema": {"$ref": "#/definitions/models.VPNActionResponse"}},
                    "400": {"description": "Missing or invalid config", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "401": {"description": "Unauthorized (JWT)", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "500": {"description": "Client could not be started", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "503": {"description": "Gateway shutting down", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/vpn/disconnect": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Stops the OpenVPN client if one is running. Always succeeds.",
                "produces": ["application/json"],
                "tags": ["VPN"],
                "summary": "Disconnect VPN",
                "responses": {
                    "200": {"description": "Client stopped", "schema": {"$ref": "#/definitions/models.VPNActionResponse"}},
                    "401": {"description": "Unauthorized (JWT)", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/vpn/status": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the VPN client state, tunnel interface, external IP and the most recent log lines.",
                "produces": ["application/json"],
                "tags": ["VPN"],
                "summary": "Get VPN status",
                "responses": {
                    "200": {"description": "Current state", "schema": {"$ref": "#/definitions/models.VPNStatusResponse"}},
                    "401": {"description": "Unauthorized (JWT)", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/vpn/logs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the complete in-memory VPN client log, oldest first.",
                "produces": ["application/json"],
                "tags": ["VPN"],
                "summary": "Get VPN logs",
                "responses": {
                    "200": {"description": "Log lines", "schema": {"$ref": "#/definitions/models.VPNLogsResponse"}},
                    "401": {"description": "Unauthorized (JWT)", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/network/ping": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Sends a single ICMP echo request using the system ping utility.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Network Tools"],
                "summary": "Ping a host",
                "parameters": [
                    {"description": "Host and optional timeout in milliseconds", "name": "ping_request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.PingRequest"}}
                ],
                "responses": {
                    "200": {"description": "Probe result", "schema": {"$ref": "#/definitions/models.PingResponse"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "401": {"description": "Unauthorized (JWT)", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/network/port-check": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Attempts a TCP connection to host:port and closes it immediately on success.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Network Tools"],
                "summary": "Check a TCP port",
                "parameters": [
                    {"description": "Host, port and optional timeout in milliseconds", "name": "port_request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.PortCheckRequest"}}
                ],
                "responses": {
                    "200": {"description": "Probe result", "schema": {"$ref": "#/definitions/models.PortCheckResponse"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "401": {"description": "Unauthorized (JWT)", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "models.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "uptime": {"type": "string"},
                "startTime": {"type": "string"},
                "version": {"type": "string"},
                "vpnStatus": {"type": "string"},
                "sshSessions": {"type": "integer"}
            }
        },
        "models.SSHSessionInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "remoteAddr": {"type": "string"},
                "created": {"type": "string"},
                "connected": {"type": "boolean"},
                "host": {"type": "string"},
                "port": {"type": "integer"},
                "username": {"type": "string"},
                "connectedAt": {"type": "string"},
                "bytesIn": {"type": "integer"},
                "bytesOut": {"type": "integer"}
            }
        },
        "models.VPNConnectRequest": {
            "type": "object",
            "properties": {
                "ovpnContent": {"type": "string", "example": "client\ndev tun\nremote vpn.example.com 1194"},
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "models.VPNActionResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "models.VPNStatusResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "connected"},
                "interface": {"type": "string"},
                "ip": {"type": "string"},
                "logs": {"type": "array", "items": {"type": "string"}},
                "pid": {"type": "integer"},
                "startedAt": {"type": "string"}
            }
        },
        "models.VPNLogsResponse": {
            "type": "object",
            "properties": {
                "logs": {"type": "array", "items": {"type": "string"}}
            }
        },
        "models.PingRequest": {
            "type": "object",
            "properties": {
                "host": {"type": "string", "example": "10.0.0.1"},
                "timeout": {"type": "integer", "example": 5000}
            }
        },
        "models.PingResponse": {
            "type": "object",
            "properties": {
                "host": {"type": "string"},
                "status": {"type": "string", "example": "reachable"},
                "duration": {"type": "integer"},
                "output": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "models.PortCheckRequest": {
            "type": "object",
            "properties": {
                "host": {"type": "string", "example": "10.0.0.1"},
                "port": {"type": "integer", "example": 22},
                "timeout": {"type": "integer", "example": 5000}
            }
        },
        "models.PortCheckResponse": {
            "type": "object",
            "properties": {
                "host": {"type": "string"},
                "port": {"type": "integer"},
                "status": {"type": "string", "example": "open"},
                "duration": {"type": "integer"},
                "reason": {"type": "string"},
                "error": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Access Gateway API",
	Description:      "Bridges browser terminals to remote SSH hosts, supervises an OpenVPN client and runs network reachability probes.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
