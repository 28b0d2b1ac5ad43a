package i18n

var ptBR = map[string]string{
	CodeUserIDRequired:            "Um usuário é necessário para esta ação.",
	CodeCommunityIDRequired:       "Uma comunidade é necessária para esta ação.",
	CodeRequestIDRequired:         "Um pedido de conexão é necessário para esta ação.",
	CodeFilterInvalid:             "O filtro da lista não pôde ser interpretado.",
	CodeAuthUnauthenticated:       "Você precisa estar conectado para fazer isso.",
	CodeAuthGrantInvalid:          "Sua sessão não pôde ser verificada.",
	CodeAuthGrantExpired:          "Sua sessão expirou. Entre novamente.",
	CodeConnectCodeSpaceExhausted: "Não foi possível criar um código de conexão agora. Tente novamente mais tarde.",
	CodeRequestNotOwned:           "Você não pode agir sobre este pedido.",
	CodeRequestNotPending:         "Este pedido já foi resolvido.",
	CodeNotFound:                  "Não encontramos o que você procurava.",

	CodeConnectCodeInvalid:        "Esse código de conexão não é válido. Códigos têm 8 letras e números.",
	CodeConnectCodeNotFound:       "Esse código de conexão não foi encontrado. Peça um código novo.",
	CodeConnectSelfRejected:       "Você não pode se conectar com você mesmo.",
	CodeConnectMemberRequired:     "Você precisa entrar nesta comunidade antes de se conectar.",
	CodeConnectAlreadyPending:     "Seu pedido de conexão já está aguardando resposta.",
	CodeConnectAlreadyConnected:   "Vocês já estão conectados.",
	CodeConnectPreviouslyRejected: "Este pedido de conexão foi recusado anteriormente.",
	CodeConnectRequestCreated:     "Pedido de conexão enviado.",
}

func init() {
	register("pt-BR", ptBR)
}
