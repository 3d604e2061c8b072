package filecrypt

// Layer composition. Layers are stored inner first: sealing walks the list
// forwards, opening walks it backwards, so the outer tag is checked before
// any inner key is derived.

// planLayers generates fresh salts and nonces for every layer the
// configuration calls for
func planLayers(cfg Config) ([]CryptoLayer, error) {
	algs, suffixes, ok := expectedLayout(cfg.AlgorithmTag())
	if !ok {
		return nil, NewValidationError("algorithm", cfg.Algorithm, "unsupported algorithm")
	}

	layers := make([]CryptoLayer, len(algs))
	for i := range algs {
		salt, err := GenerateSalt()
		if err != nil {
			return nil, NewEncryptionError("encrypt", i+1, err)
		}
		nonce, err := GenerateNonce()
		if err != nil {
			return nil, NewEncryptionError("encrypt", i+1, err)
		}
		layers[i] = CryptoLayer{
			Algorithm:      algs[i],
			Salt:           salt,
			Nonce:          nonce,
			PasswordSuffix: suffixes[i],
		}
	}
	return layers, nil
}

// layerEngine derives the layer key and builds its cipher. The key is
// zeroed before returning.
func layerEngine(kdf KeyDeriver, layer CryptoLayer, password []byte) (CipherEngine, error) {
	secret := password
	if layer.PasswordSuffix != "" {
		secret = make([]byte, 0, len(password)+len(layer.PasswordSuffix))
		secret = append(secret, password...)
		secret = append(secret, layer.PasswordSuffix...)
		defer ZeroBytes(secret)
	}

	key, err := kdf.DeriveKey(secret, layer.Salt)
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(key)

	return NewCipherEngine(layer.Algorithm, key)
}

// sealLayers applies every layer in order. onLayer is called with the 0-based
// index after each pass.
func sealLayers(kdf KeyDeriver, layers []CryptoLayer, password, plaintext, ad []byte, onLayer func(int)) ([]byte, error) {
	data := plaintext
	for i, layer := range layers {
		engine, err := layerEngine(kdf, layer, password)
		if err != nil {
			return nil, err
		}

		sealed, err := engine.Encrypt(layer.Nonce, data, ad)
		if err != nil {
			return nil, NewEncryptionError("encrypt", i+1, err)
		}
		data = sealed

		if onLayer != nil {
			onLayer(i)
		}
	}
	return data, nil
}

// openLayers reverses sealLayers, outermost first. Any tag failure, from a
// wrong password or tampered bytes, is reported as an AuthenticationError.
func openLayers(kdf KeyDeriver, layers []CryptoLayer, password, ciphertext, ad []byte, onLayer func(int)) ([]byte, error) {
	data := ciphertext
	for i := len(layers) - 1; i >= 0; i-- {
		engine, err := layerEngine(kdf, layers[i], password)
		if err != nil {
			return nil, err
		}

		opened, err := engine.Decrypt(layers[i].Nonce, data, ad)
		if err != nil {
			return nil, &AuthenticationError{}
		}
		data = opened

		if onLayer != nil {
			onLayer(i)
		}
	}
	return data, nil
}
