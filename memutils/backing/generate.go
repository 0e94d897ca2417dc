package backing

//go:generate mockgen -source source.go -destination ./mocks/source.go -package mock_backing
