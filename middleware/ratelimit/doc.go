// Package ratelimit fornece adapters HTTP (net/http) para admissão por janela
// deslizante e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny + reset, acquire/timeout) sem net/http
//   - infra: implementações concretas (janela deslizante, semáforo, estatísticas)
//   - ratelimit (este pacote): middlewares HTTP + extração de chave + tradução para status/headers
//
// Fluxo na API:
//
//   1) Resolve o identificador do cliente (X-Forwarded-For, X-Real-IP, RemoteAddr)
//   2) Chama a camada application para obter a decisão
//   3) Se bloqueado, responde 429 com o instante de reset, sem chamar o handler
//   4) Se permitido, chama o próximo handler (consulta, feedback)
//
// Cada endpoint monta seu próprio Middleware com seu próprio SlidingWindow.
package ratelimit
