// Package domain define contratos e tipos de domínio para admissão (janela
// deslizante por identificador), estatísticas e concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
package domain
