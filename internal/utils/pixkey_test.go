package utils

import "testing"

func TestValidateCPF(t *testing.T) {
	tests := []struct {
		name string
		cpf  string
		want bool
	}{
		{name: "valid plain", cpf: "52998224725", want: true},
		{name: "valid formatted", cpf: "529.982.247-25", want: true},
		{name: "wrong check digit", cpf: "52998224726", want: false},
		{name: "all same digits", cpf: "11111111111", want: false},
		{name: "too short", cpf: "5299822472", want: false},
		{name: "too long", cpf: "529982247250", want: false},
		{name: "letters", cpf: "5299822472a", want: false},
		{name: "empty", cpf: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateCPF(tt.cpf); got != tt.want {
				t.Errorf("ValidateCPF(%q) = %v, want %v", tt.cpf, got, tt.want)
			}
		})
	}
}

func TestValidateCNPJ(t *testing.T) {
	tests := []struct {
		name string
		cnpj string
		want bool
	}{
		{name: "valid plain", cnpj: "11222333000181", want: true},
		{name: "valid formatted", cnpj: "11.222.333/0001-81", want: true},
		{name: "wrong check digit", cnpj: "11222333000182", want: false},
		{name: "all same digits", cnpj: "11111111111111", want: false},
		{name: "too short", cnpj: "1122233300018", want: false},
		{name: "letters", cnpj: "1122233300018x", want: false},
		{name: "empty", cnpj: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateCNPJ(tt.cnpj); got != tt.want {
				t.Errorf("ValidateCNPJ(%q) = %v, want %v", tt.cnpj, got, tt.want)
			}
		})
	}
}

func TestValidatePixKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		keyType string
		want    bool
	}{
		{name: "cpf valid", key: "529.982.247-25", keyType: "cpf", want: true},
		{name: "cpf invalid", key: "12345678900", keyType: "cpf", want: false},
		{name: "cnpj valid", key: "11222333000181", keyType: "cnpj", want: true},
		{name: "email valid", key: "seller@example.com", keyType: "email", want: true},
		{name: "email without domain", key: "seller@", keyType: "email", want: false},
		{name: "email with spaces", key: "se ller@example.com", keyType: "email", want: false},
		{name: "phone with country code", key: "+5511987654321", keyType: "phone", want: true},
		{name: "phone without plus", key: "5511987654321", keyType: "phone", want: true},
		{name: "phone too short", key: "+55119", keyType: "phone", want: false},
		{name: "random valid uuid", key: "7f2c1a90-9d0e-4c8b-b0aa-3f1de9a6f001", keyType: "random", want: true},
		{name: "random not a uuid", key: "not-a-uuid", keyType: "random", want: false},
		{name: "key with surrounding spaces", key: "  seller@example.com  ", keyType: "email", want: true},
		{name: "unknown type", key: "seller@example.com", keyType: "iban", want: false},
		{name: "empty key", key: "", keyType: "email", want: false},
		{name: "blank key", key: "   ", keyType: "email", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidatePixKey(tt.key, tt.keyType); got != tt.want {
				t.Errorf("ValidatePixKey(%q, %q) = %v, want %v", tt.key, tt.keyType, got, tt.want)
			}
		})
	}
}
