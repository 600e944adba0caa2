package middleware

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strings"

	"github.com/akolanti/DocMind/internal/adapter/utils"
	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/handlers"
	"github.com/akolanti/DocMind/pkg/logger_i"
)

const traceHeader = "X-Trace-Id"

func injectTrace(re requestResponseStruct) requestResponseStruct {
	req := re.req
	if req == nil {
		re.badRequest = failureStruct{isBadRequest: true, httpCode: http.StatusBadRequest, errorMessage: "request is empty"}
		return re
	}
	trace := req.Header.Get(traceHeader)
	if trace == "" {
		trace = utils.GetNewUUID()
	}
	re.logger = re.logger.With("traceId", trace)
	ctx := context.WithValue(req.Context(), config.TRACE_ID_KEY, trace)
	req.Header.Set(traceHeader, trace)
	re.writer.Header().Set(traceHeader, trace)
	re.req = req.WithContext(ctx)

	re.logger.Debug("New request received", "method", req.Method, "path", req.URL.Path)
	return re
}

func authenticate(re requestResponseStruct) requestResponseStruct {
	s := config.Current().Server
	if !IsValidBearerToken(re.req.Header.Get("Authorization"), s.AuthToken, s.NoAuthBypass, re.logger) {
		re.badRequest = failureStruct{isBadRequest: true, httpCode: http.StatusUnauthorized, errorMessage: "Unauthorized"}
		return re
	}
	return re
}

func IsValidBearerToken(authHeader, token string, bypass bool, log *logger_i.Logger) bool {
	if bypass {
		log.Debug("auth bypass enabled")
		return true
	}
	if token == "" {
		log.Error("No auth token configured, rejecting")
		return false
	}
	if authHeader == "" {
		log.Warn("Empty authorization header")
		return false
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		log.Warn("No Bearer header")
		return false
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(authHeader, "Bearer ")), []byte(token)) != 1 {
		log.Warn("Invalid authorization header")
		return false
	}
	return true
}

func rateLimiter(re requestResponseStruct) requestResponseStruct {
	if !config.Current().Server.RateLimit {
		return re
	}
	ip, _, err := net.SplitHostPort(re.req.RemoteAddr)
	if err != nil {
		ip = re.req.RemoteAddr
	}

	if !limiterInstance.GetLimiter(ip).Allow() {
		re.logger.Warn("Rate limit exceeded", "ip", ip)
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusTooManyRequests,
			errorMessage: "Rate limit exceeded",
		}
	}
	return re
}

// handleBadRequest writes the failure and reports whether the request may continue.
func handleBadRequest(re requestResponseStruct) bool {
	if !re.badRequest.isBadRequest {
		return true
	}
	remote := ""
	if re.req != nil {
		remote = re.req.RemoteAddr
	}
	re.logger.Warn("Bad request", "httpCode", re.badRequest.httpCode, "errorMessage", re.badRequest.errorMessage, "ip", remote)
	handlers.WriteErrorResponse(re.writer, re.badRequest.httpCode, "", re.badRequest.errorMessage)
	return false
}
